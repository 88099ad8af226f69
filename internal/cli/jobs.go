package cli

import (
	"context"

	"finance_automation/internal/app"
	"finance_automation/internal/domain/event"
	"finance_automation/internal/domain/finance"
	"finance_automation/internal/domain/notification"
	"finance_automation/internal/infra/config"
	"finance_automation/internal/infra/scheduler"
)

const (
	jobIncomeRecurrence     = "income_recurrence"
	jobExpenseRecurrence    = "expense_recurrence"
	jobBudgetRecurrence     = "budget_recurrence"
	jobDateNightRollover    = "date_night_rollover"
	jobAppointmentReminders = "appointment_reminders"
	jobDateNightReminders   = "date_night_reminders"
	jobDebtReminders        = "debt_reminders"
)

type services struct {
	recurrence *app.RecurrenceService
	reminders  *app.ReminderService
	rollover   *app.RolloverService
}

type reminderRules struct {
	appointment, dateNight, debt app.ReminderRule
}

func newReminderRules(r config.ReminderConfig) reminderRules {
	return reminderRules{
		appointment: app.ReminderRule{
			Kind:      event.KindAppointment,
			Category:  notification.CategoryAppointment,
			Lead:      r.AppointmentLead.Duration(),
			Tolerance: r.AppointmentTolerance.Duration(),
		},
		dateNight: app.ReminderRule{
			Kind:            event.KindDateNight,
			Category:        notification.CategoryDateNight,
			Lead:            r.DateNightLead.Duration(),
			Tolerance:       r.DateNightTolerance.Duration(),
			FanOutToPartner: true,
		},
		debt: app.ReminderRule{
			Kind:      event.KindDebt,
			Category:  notification.CategoryDebt,
			Lead:      r.DebtLead.Duration(),
			Tolerance: r.DebtTolerance.Duration(),
		},
	}
}

// jobSpecs binds every job to its configured schedule. svc is only dereferenced when a job runs.
func jobSpecs(cfg *config.AppConfig, svc *services) []scheduler.JobSpec {
	rules := newReminderRules(cfg.Reminders)
	c := cfg.Cron

	recurrence := func(kind finance.Kind) scheduler.JobFunc {
		return func(ctx context.Context) (app.RunStats, error) { return svc.recurrence.Run(ctx, kind) }
	}
	reminders := func(rule app.ReminderRule) scheduler.JobFunc {
		return func(ctx context.Context) (app.RunStats, error) { return svc.reminders.Run(ctx, rule) }
	}

	return []scheduler.JobSpec{
		{Name: jobIncomeRecurrence, Spec: c.IncomeSpec, TimeZone: c.IncomeTZ, Run: recurrence(finance.KindIncome)},
		{Name: jobExpenseRecurrence, Spec: c.ExpenseSpec, TimeZone: c.ExpenseTZ, Run: recurrence(finance.KindExpense)},
		{Name: jobBudgetRecurrence, Spec: c.BudgetSpec, TimeZone: c.BudgetTZ, Run: recurrence(finance.KindBudget)},
		{Name: jobDateNightRollover, Spec: c.RolloverSpec, TimeZone: c.RolloverTZ,
			Run: func(ctx context.Context) (app.RunStats, error) { return svc.rollover.Run(ctx, event.KindDateNight) }},
		{Name: jobAppointmentReminders, Spec: c.AppointmentRemindersSpec, TimeZone: c.AppointmentRemindersTZ, Run: reminders(rules.appointment)},
		{Name: jobDateNightReminders, Spec: c.DateNightRemindersSpec, TimeZone: c.DateNightRemindersTZ, Run: reminders(rules.dateNight)},
		{Name: jobDebtReminders, Spec: c.DebtRemindersSpec, TimeZone: c.DebtRemindersTZ, Run: reminders(rules.debt)},
	}
}
