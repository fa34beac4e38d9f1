package middleware

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic гасит панику в обработчике апдейта, чтобы один
// кривой апдейт не ронял весь магазин. Ставится через defer.
func RecoverFromPanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("ПАНИКА в обработчике апдейта — восстановлено")
	}
}
