package nav

import (
	"net/url"

	"smartboard-client/internal/model"
)

// DeepLink picks the screen a notification opens, from the booking or
// appointment its meta references. Anything else opens the generic detail
// screen.
func DeepLink(item model.NotificationItem, role model.Role) Location {
	if id, ok := item.Meta.String("bookingId"); ok && id != "" {
		id = url.PathEscape(id)
		if role == model.RoleOwner {
			return Location{Path: "/owner/registrations/" + id}
		}
		return Location{Path: "/student/boardings/" + id}
	}
	if id, ok := item.Meta.String("appointmentId"); ok && id != "" {
		id = url.PathEscape(id)
		if role == model.RoleOwner {
			return Location{Path: "/owner/appointments"}
		}
		return Location{Path: "/student/appointments/" + id}
	}
	return Location{
		Path:   RouteNotificationDetails,
		Params: map[string]string{"notificationId": string(item.ID)},
	}
}
