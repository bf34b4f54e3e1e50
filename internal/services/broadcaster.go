package services

import "bolita-miniapp-backend/internal/models"

type Broadcaster interface {
	BroadcastSessionOpened(session *models.Session)
	BroadcastSessionClosed(session *models.Session)
	BroadcastWinningNumber(win *models.WinningNumber)
}
