package sheet

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/warp/backoffice/office"
)

// Supported export locales. The first entry is the fallback.
var supported = []language.Tag{language.Korean, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.Korean: {
		"status.PENDING":    "작업전",
		"status.ABSENT":     "부재",
		"status.FAIL":       "실패",
		"status.SUCCESS_1":  "1차성공",
		"status.SUCCESS_2":  "2차성공",
		"status.PROMISING":  "가망",
		"unassigned":        "미지정",
		"sheet.title":       "고객 데이터",
		"header.name":       "고객명",
		"header.contact":    "연락처",
		"header.address":    "주소",
		"header.consultant": "상담사",
		"header.created_at": "가입일",
		"header.status":     "상태",
		"header.note":       "메모",
	},
	language.English: {
		"status.PENDING":    "Pending",
		"status.ABSENT":     "Absent",
		"status.FAIL":       "Failed",
		"status.SUCCESS_1":  "Success (1st)",
		"status.SUCCESS_2":  "Success (2nd)",
		"status.PROMISING":  "Promising",
		"unassigned":        "Unassigned",
		"sheet.title":       "Clients",
		"header.name":       "Name",
		"header.contact":    "Contact",
		"header.address":    "Address",
		"header.consultant": "Consultant",
		"header.created_at": "Created",
		"header.status":     "Status",
		"header.note":       "Note",
	},
}

func init() {
	for tag, m := range messages {
		for key, msg := range m {
			message.SetString(tag, key, msg)
		}
	}
}

// Labels translates export strings through x/text message catalogs.
// It implements office.Labels.
type Labels struct {
	printer *message.Printer
}

var _ office.Labels = (*Labels)(nil)

// NewLabels returns labels for the best match of locale ("ko", "en-US",
// an Accept-Language value...). Unknown locales fall back to Korean.
func NewLabels(locale string) *Labels {
	tag, _ := language.MatchStrings(matcher, locale)
	base, _ := tag.Base()
	for _, t := range supported {
		if b, _ := t.Base(); b == base {
			tag = t
			break
		}
	}
	return &Labels{printer: message.NewPrinter(tag)}
}

func (l *Labels) Status(s office.Status) string {
	return l.printer.Sprintf("status." + string(s))
}

func (l *Labels) Unassigned() string {
	return l.printer.Sprintf("unassigned")
}

// Header returns the column titles for office.ExportHeaderKeys.
func (l *Labels) Header() []string {
	out := make([]string, len(office.ExportHeaderKeys))
	for i, key := range office.ExportHeaderKeys {
		out[i] = l.printer.Sprintf("header." + key)
	}
	return out
}

// SheetTitle is the name of the exported worksheet.
func (l *Labels) SheetTitle() string {
	return l.printer.Sprintf("sheet.title")
}
