package app

import (
	"context"
	"errors"

	"smartboard-client/internal/notify"
)

// TerminalDevice is the push capability of a terminal session: it has a
// token only when one was provisioned through configuration.
type TerminalDevice struct {
	Token string
}

func (d TerminalDevice) IsDevice() bool { return d.Token != "" }

func (TerminalDevice) Permission(context.Context) (notify.Permission, error) {
	return notify.PermissionGranted, nil
}

func (TerminalDevice) RequestPermission(context.Context) (notify.Permission, error) {
	return notify.PermissionGranted, nil
}

func (d TerminalDevice) PushToken(context.Context) (string, error) {
	if d.Token == "" {
		return "", errors.New("no push token configured")
	}
	return d.Token, nil
}
