package models

// All returns the models handled by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Property{},
		&Prospect{},
		&ShortLink{},
	}
}
