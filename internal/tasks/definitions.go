package tasks

// DefineTasks registers all available tasks
func DefineTasks(r *Registry) {
	r.Register(RunBillingTask.TaskID(), RunBillingTask.HandleExecution)
	r.Register(FlagPendingCyclesTask.TaskID(), FlagPendingCyclesTask.HandleExecution)
	r.Register(SendPaymentReceiptTask.TaskID(), SendPaymentReceiptTask.HandleExecution)
}
