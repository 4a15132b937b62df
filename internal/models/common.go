package models

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

type UserStats struct {
	TotalCards      int64    `json:"total_cards"`
	FavoriteCards   int64    `json:"favorite_cards"`
	TotalCategories int64    `json:"total_categories"`
	AverageQAScore  *float64 `json:"average_qa_score,omitempty"`
}
