/*
Copyright © 2026 KevFet
*/

package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// Guard failures of the room state machine. The websocket layer swallows
// ErrForbidden and ErrInvalidTransition (the client UI never offers those
// actions), while lookup failures are always surfaced to the caller.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrRoomExists         = errors.New("room code already in use")
	ErrNameNotFound       = errors.New("name not found in this room")
	ErrPlayerNotFound     = errors.New("player not found in this room")
	ErrForbidden          = errors.New("action not permitted for this role")
	ErrInvalidTransition  = errors.New("action not permitted in this phase")
	ErrPreconditionFailed = errors.New("precondition not met")
)

// errorCode maps a state machine error to the short code used in JSON
// error payloads.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrNameNotFound), errors.Is(err, ErrPlayerNotFound):
		return "not_found"
	case errors.Is(err, ErrRoomExists):
		return "already_exists"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrPreconditionFailed):
		return "precondition_failed"
	default:
		return "internal"
	}
}

func logf(cfg *Config, format string, args ...any) {
	if !cfg.verbose {
		return
	}

	log.Printf("%s | "+format, append([]any{time.Now().Format(logDate)}, args...)...)
}

func newPage(title, body string) string {
	var htmlBody strings.Builder

	htmlBody.WriteString(`<!DOCTYPE html><html lang="en"><head>`)
	htmlBody.WriteString(`<style>`)
	htmlBody.WriteString(`html,body,a{display:block;height:100%;width:100%;text-decoration:none;color:inherit;cursor:auto;}</style>`)
	htmlBody.WriteString(fmt.Sprintf("<title>%s</title></head>", title))
	htmlBody.WriteString(fmt.Sprintf("<body><a href=\"/\">%s</a></body></html>", body))

	return htmlBody.String()
}
