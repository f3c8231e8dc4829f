package domain

// User is the read-only snapshot the core pulls from the account system
// to denormalize customer fields onto an order.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}
