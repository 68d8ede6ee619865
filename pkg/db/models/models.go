package models

// All lists every persisted model, in dependency order, for schema auto-migration.
func All() []any {
	return []any{
		&Part{},
		&Order{},
		&ActivityLog{},
		&OutboxEvent{},
	}
}
