package sqlinline

// QDebitCredits deducts from the subscription bucket first and takes the
// remainder from the purchased bucket. The balance check lives in the WHERE
// clause and the SET expressions read the old row values, so concurrent
// debits against the same account serialize on the row update and cannot
// lose each other. Zero rows affected means insufficient credits.
const QDebitCredits = `--sql 4d7b8188-305a-48e8-b1f7-1b83cce021c0
update credit_accounts
set subscription_credits = subscription_credits - least(subscription_credits, $2::int),
    purchased_credits = purchased_credits - greatest($2::int - subscription_credits, 0),
    updated_at = now()
where owner_id = $1::uuid
  and subscription_credits + purchased_credits >= $2::int
returning subscription_credits, purchased_credits;
`

const QInsertCreditUsage = `--sql ad47ec39-354f-46a1-94c7-3b5ec1507e3b
insert into credit_usage(id, owner_id, amount, description, created_at)
values (gen_random_uuid(), $1::uuid, $2::int, $3::text, now());
`

const QSelectCreditBalance = `--sql 7284ffde-decf-4f4b-ab09-0556e83ac668
select owner_id, subscription_credits, purchased_credits, updated_at
from credit_accounts
where owner_id = $1::uuid
limit 1;
`

const QResetSubscriptionCredits = `--sql 21bda68a-0063-4b70-b37c-10384e1f6fb6
insert into credit_accounts(owner_id, subscription_credits, purchased_credits, updated_at)
values ($1::uuid, $2::int, 0, now())
on conflict (owner_id) do update set
    subscription_credits = excluded.subscription_credits,
    updated_at = now();
`

const QAddPurchasedCredits = `--sql cdc6c073-ddf2-4d9f-b186-0173dd2af271
insert into credit_accounts(owner_id, subscription_credits, purchased_credits, updated_at)
values ($1::uuid, 0, $2::int, now())
on conflict (owner_id) do update set
    purchased_credits = credit_accounts.purchased_credits + excluded.purchased_credits,
    updated_at = now();
`
