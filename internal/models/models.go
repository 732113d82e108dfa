package models

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Region{},
		&Plan{},
		&User{},
		&Assignment{},
		&Customer{},
		&BillingCycle{},
		&Invoice{},
		&CashSession{},
		&Payment{},
		&ScheduledTask{},
		&ScheduledTaskHistory{},
	}
}
