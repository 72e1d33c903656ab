package handlers

// AppHandlers holds every HTTP handler of the application.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	CaseHandler         *CaseHandler
	ChatHandler         *ChatHandler
	NotificationHandler *NotificationHandler
	RealtimeAuthHandler *RealtimeAuthHandler
}
