package models

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{}, &Business{}, &Follow{}, &Friendship{},
		&CalendarItem{}, &Event{}, &Attendee{}, &Reminder{},
		&Notification{}, &RequestNotification{}, &ReminderNotification{}, &EventNotification{},
		&Message{},
	}
}
