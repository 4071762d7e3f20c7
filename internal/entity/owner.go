package entity

// Owner is a row of the registered-owner lookup (titulares), keyed by plate.
type Owner struct {
	Domain  string  `json:"domain"`
	Person  Person  `json:"person"`
	Vehicle Vehicle `json:"vehicle"`
}
