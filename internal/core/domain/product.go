package domain

type Product struct {
	ID      int64
	Name    string
	Stock   int
	Price   float64
	Version int // optimistic locking
}
