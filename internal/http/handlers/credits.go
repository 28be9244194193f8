package handlers

import "net/http"

type creditBalanceResponse struct {
	SubscriptionCredits int `json:"subscription_credits"`
	PurchasedCredits    int `json:"purchased_credits"`
	TotalCredits        int `json:"total_credits"`
}

func (a *App) CreditsBalance(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	account, err := a.Ledger.Balance(r.Context(), userID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("balance lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balance")
		return
	}
	a.json(w, http.StatusOK, creditBalanceResponse{
		SubscriptionCredits: account.SubscriptionCredits,
		PurchasedCredits:    account.PurchasedCredits,
		TotalCredits:        account.Total(),
	})
}
