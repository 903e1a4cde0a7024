package domain

type Address struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Label   string `json:"label"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	Pincode string `json:"pincode"`
	Phone   string `json:"phone"`
}
