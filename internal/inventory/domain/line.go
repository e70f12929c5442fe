package domain

// Line is one product/quantity pair requested for reservation.
type Line struct {
	ProductID string
	Quantity  int
}
