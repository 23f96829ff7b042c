// internal/models/status.go
package models

// StatusCode is the numeric id of a RequestStatus lookup row.
type StatusCode uint

const (
	StatusSubmitted                      StatusCode = 1
	StatusPendingPayment                 StatusCode = 2
	StatusPendingIpReview                StatusCode = 3
	StatusIpResponded                    StatusCode = 4
	StatusPendingDirectorReview          StatusCode = 5
	StatusPendingMinisterReview          StatusCode = 6
	StatusDirectorResponded              StatusCode = 7
	StatusMinisterResponded              StatusCode = 8
	StatusAccepted                       StatusCode = 9
	StatusRejected                       StatusCode = 10
	StatusReservationGranted             StatusCode = 11
	StatusReservationCancelledIncomplete StatusCode = 12
	StatusReservationFinal               StatusCode = 13
	StatusReservationCancelledStruckOff  StatusCode = 14
)

type statusInfo struct {
	name     string
	nameAr   string
	color    string
	terminal bool
}

var statusCatalog = map[StatusCode]statusInfo{
	StatusSubmitted:                      {"Submitted", "مقدم", "#2563eb", false},
	StatusPendingPayment:                 {"PendingPayment", "بانتظار الدفع", "#f59e0b", false},
	StatusPendingIpReview:                {"PendingIpReview", "بانتظار رأي الملكية الفكرية", "#8b5cf6", false},
	StatusIpResponded:                    {"IpResponded", "تم رد الملكية الفكرية", "#6366f1", false},
	StatusPendingDirectorReview:          {"PendingDirectorReview", "بانتظار المدير", "#0ea5e9", false},
	StatusPendingMinisterReview:          {"PendingMinisterReview", "بانتظار معاون الوزير", "#14b8a6", false},
	StatusDirectorResponded:              {"DirectorResponded", "تم رد المدير", "#0284c7", false},
	StatusMinisterResponded:              {"MinisterResponded", "تم رد معاون الوزير", "#0d9488", false},
	StatusAccepted:                       {"Accepted", "مقبول", "#16a34a", true},
	StatusRejected:                       {"Rejected", "مرفوض", "#dc2626", true},
	StatusReservationGranted:             {"ReservationGranted", "محجوز", "#65a30d", false},
	StatusReservationCancelledIncomplete: {"ReservationCancelledIncomplete", "ملغى لعدم استكمال", "#ea580c", false},
	StatusReservationFinal:               {"ReservationFinal", "حجز نهائي", "#15803d", true},
	StatusReservationCancelledStruckOff:  {"ReservationCancelledStruckOff", "مشطوب", "#7f1d1d", true},
}

// AllStatusCodes lists every status in display order.
func AllStatusCodes() []StatusCode {
	codes := make([]StatusCode, 0, len(statusCatalog))
	for code := StatusSubmitted; code <= StatusReservationCancelledStruckOff; code++ {
		codes = append(codes, code)
	}
	return codes
}

func (s StatusCode) Valid() bool {
	_, ok := statusCatalog[s]
	return ok
}

func (s StatusCode) String() string {
	if info, ok := statusCatalog[s]; ok {
		return info.name
	}
	return "Unknown"
}

func (s StatusCode) ArabicName() string {
	return statusCatalog[s].nameAr
}

func (s StatusCode) Color() string {
	return statusCatalog[s].color
}

func (s StatusCode) IsTerminal() bool {
	return statusCatalog[s].terminal
}

// RequestStatus is the seeded lookup row for a StatusCode.
type RequestStatus struct {
	ID         StatusCode `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name       string     `json:"name" gorm:"size:64;not null;uniqueIndex"`
	NameAr     string     `json:"name_ar" gorm:"size:128"`
	Color      string     `json:"color" gorm:"size:16"`
	IsTerminal bool       `json:"is_terminal" gorm:"default:false"`
	IsDeleted  bool       `json:"is_deleted" gorm:"default:false"`
}

// StatusLookupRows builds the seed rows for the status lookup table.
func StatusLookupRows() []RequestStatus {
	rows := make([]RequestStatus, 0, len(statusCatalog))
	for _, code := range AllStatusCodes() {
		info := statusCatalog[code]
		rows = append(rows, RequestStatus{
			ID:         code,
			Name:       info.name,
			NameAr:     info.nameAr,
			Color:      info.color,
			IsTerminal: info.terminal,
		})
	}
	return rows
}
