package domain

type CustomerType string

const (
	CustomerPremium  CustomerType = "Premium"
	CustomerStandard CustomerType = "Standard"
)

type Customer struct {
	ID         int64
	Name       string
	Budget     float64
	Type       CustomerType
	TotalSpent float64
	Username   string
}
