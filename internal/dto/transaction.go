package dto

type TransactionResponse struct {
	ID         string `json:"id"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Merchant   string `json:"merchant"`
	Category   string `json:"category"`
	OccurredAt string `json:"occurred_at"`
	CreatedAt  string `json:"created_at"`
}

type CategoryTotal struct {
	Category string `json:"category"`
	Currency string `json:"currency"`
	Total    string `json:"total"`
	Count    int64  `json:"count"`
}

type SummaryResponse struct {
	Totals []CategoryTotal `json:"totals"`
}
