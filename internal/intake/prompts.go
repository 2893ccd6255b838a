package intake

import (
	"fmt"
	"strings"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/submission"
)

const helpText = `I help you report maintenance problems in your hostel.

/report - file a new complaint
/status <id> - check a complaint
/mycomplaints - list your recent complaints
/cancel - abandon the complaint in progress
/done - finish attaching photos`

func prompt(state State) Reply {
	switch state {
	case StateSelectHostel:
		buttons := make([]Button, 0, len(domain.Hostels))
		for _, h := range domain.Hostels {
			buttons = append(buttons, Button{Label: h, Data: hostelPrefix + h})
		}
		return Reply{Text: "Which hostel are you in?", Buttons: rows(buttons, 2)}
	case StateGetRoomNumber:
		return Reply{Text: "What is your room number? (e.g. A101)"}
	case StateSelectCategory:
		buttons := make([]Button, 0, len(domain.Categories))
		for _, c := range domain.Categories {
			buttons = append(buttons, Button{Label: c.Label, Data: categoryPrefix + c.Key})
		}
		return Reply{Text: "What kind of problem is it?", Buttons: rows(buttons, 2)}
	case StateGetDescription:
		return Reply{Text: fmt.Sprintf("Describe the problem (%d-%d characters).",
			domain.DescriptionMinLength, domain.DescriptionMaxLength)}
	case StateSelectSeverity:
		buttons := make([]Button, 0, len(domain.Severities))
		for _, s := range domain.Severities {
			label := string(s)
			buttons = append(buttons, Button{Label: strings.ToUpper(label[:1]) + label[1:], Data: severityPrefix + label})
		}
		return Reply{Text: "How severe is it?", Buttons: rows(buttons, 3)}
	case StateAttachPhotos:
		return Reply{Text: "Send photos of the problem, or /done to finish."}
	default:
		return Reply{Text: helpText}
	}
}

func rows(buttons []Button, perRow int) [][]Button {
	var out [][]Button
	for start := 0; start < len(buttons); start += perRow {
		end := min(start+perRow, len(buttons))
		out = append(out, buttons[start:end])
	}
	return out
}

func formatComplaint(v submission.ComplaintView) string {
	category := v.Category
	if c, ok := domain.CategoryByKey(v.Category); ok {
		category = c.Label
	}
	text := fmt.Sprintf("Complaint %s\nStatus: %s\nHostel: %s, room %s\nCategory: %s\nSeverity: %s",
		v.ID, strings.ReplaceAll(v.Status, "_", " "), v.Hostel, v.RoomNumber, category, v.Severity)
	if !v.UpdatedAt.IsZero() {
		text += "\nLast update: " + v.UpdatedAt.Format("02 Jan 2006 15:04")
	}
	return text
}
