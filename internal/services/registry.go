package services

import (
	serviceschat "lawdesk_backend/internal/services/chat"
)

// ServiceContainer bundles the constructed services for wiring.
type ServiceContainer struct {
	AuthService         *AuthService
	CaseService         *CaseService
	ChatService         *serviceschat.ChatService
	NotificationService *NotificationService
}
