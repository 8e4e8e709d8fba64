package domain

// Category is the closed set of expense categories.
type Category string

const (
	CategoryTravel   Category = "travel"
	CategoryMeals    Category = "meals"
	CategorySupplies Category = "supplies"
	CategoryLodging  Category = "lodging"
	CategoryOther    Category = "other"
)

// Categories lists every valid category.
func Categories() []Category {
	return []Category{CategoryTravel, CategoryMeals, CategorySupplies, CategoryLodging, CategoryOther}
}

// Valid reports whether the category is a member of the closed set.
func (c Category) Valid() bool {
	switch c {
	case CategoryTravel, CategoryMeals, CategorySupplies, CategoryLodging, CategoryOther:
		return true
	}
	return false
}

// Currency is the closed set of supported ISO-4217 currency codes. Amounts
// are normalized to a single unit upstream before route computation.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// Valid reports whether the currency is a member of the closed set.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyGBP, CurrencyJPY, CurrencyCAD, CurrencyAUD:
		return true
	}
	return false
}
