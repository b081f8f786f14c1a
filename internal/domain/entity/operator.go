package entity

// Operator is the authenticated user returned by the backend login.
type Operator struct {
	ID        int64
	Username  string
	CompanyID int64
}
