package domain

// Contact is the minimal identity row shared by the deleted-subscription
// tombstones and the form-agreement record set.
type Contact struct {
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}
