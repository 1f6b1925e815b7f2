package expense

// Category classifies an expense
type Category string

const (
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryRecreation     Category = "Recreation"
	CategoryHousing        Category = "Housing"
	CategoryUtilities      Category = "Utilities"
	CategoryPersonalCare   Category = "Personal Care"
	CategorySaving         Category = "Saving"
	CategoryDebts          Category = "Debts"
	CategoryClothing       Category = "Clothing"
	CategoryPaycheck       Category = "Paycheck"
	CategorySettlement     Category = "Settlement"
)

var categories = map[Category]struct{}{
	CategoryFood:           {},
	CategoryTransportation: {},
	CategoryRecreation:     {},
	CategoryHousing:        {},
	CategoryUtilities:      {},
	CategoryPersonalCare:   {},
	CategorySaving:         {},
	CategoryDebts:          {},
	CategoryClothing:       {},
	CategoryPaycheck:       {},
	CategorySettlement:     {},
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}
