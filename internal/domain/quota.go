package domain

import (
	"strings"

	apperrors "github.com/utafrali/babo/pkg/errors"
)

// DefaultMaxRecommendations applies when the server does not report a limit.
const DefaultMaxRecommendations = 3

// RecommendationQuota is the server's view of how many recommendations a user
// may still make for one target book. It is only ever replaced wholesale by a
// fresh server response, never adjusted locally.
type RecommendationQuota struct {
	CurrentCount int  `json:"current_count"`
	MaxAllowed   int  `json:"max_allowed"`
	CanRecommend bool `json:"can_recommend"`
}

// NewRecommendationQuota builds a quota from a server response. A nil
// maxAllowed falls back to DefaultMaxRecommendations.
func NewRecommendationQuota(currentCount int, maxAllowed *int, canRecommend bool) RecommendationQuota {
	limit := DefaultMaxRecommendations
	if maxAllowed != nil {
		limit = *maxAllowed
	}
	return RecommendationQuota{
		CurrentCount: currentCount,
		MaxAllowed:   limit,
		CanRecommend: canRecommend,
	}
}

// RemainingSlots returns how many more books may be recommended, never negative.
func RemainingSlots(q RecommendationQuota) int {
	return max(0, q.MaxAllowed-q.CurrentCount)
}

// CanAdmit reports whether a selection of sizeAfterAdd books fits the quota.
func CanAdmit(q RecommendationQuota, sizeAfterAdd int) bool {
	return q.CanRecommend && sizeAfterAdd <= RemainingSlots(q)
}

// QuotaState is the lifecycle of a quota guard.
type QuotaState string

const (
	QuotaUnchecked QuotaState = "UNCHECKED"
	QuotaChecking  QuotaState = "CHECKING"
	QuotaReady     QuotaState = "READY"
	QuotaLocked    QuotaState = "LOCKED"
)

// StateFor returns the state a guard settles in after receiving q.
func StateFor(q RecommendationQuota) QuotaState {
	if !q.CanRecommend || RemainingSlots(q) == 0 {
		return QuotaLocked
	}
	return QuotaReady
}

// AdmitReason identifies why a candidate was admitted or refused.
type AdmitReason string

const (
	ReasonAdmitted           AdmitReason = "admitted"
	ReasonBlankCandidate     AdmitReason = "blank_candidate"
	ReasonQuotaUnknown       AdmitReason = "quota_unknown"
	ReasonNotPermitted       AdmitReason = "not_permitted"
	ReasonTargetBook         AdmitReason = "target_book"
	ReasonAlreadyRecommended AdmitReason = "already_recommended"
	ReasonAlreadySelected    AdmitReason = "already_selected"
	ReasonQuotaExceeded      AdmitReason = "quota_exceeded"
)

var reasonMessages = map[AdmitReason]string{
	ReasonAdmitted:           "book added to selection",
	ReasonBlankCandidate:     "isbn is required",
	ReasonQuotaUnknown:       "recommendation quota has not been checked yet",
	ReasonNotPermitted:       "you cannot recommend books for this title",
	ReasonTargetBook:         "a book cannot be recommended for itself",
	ReasonAlreadyRecommended: "you have already recommended this book",
	ReasonAlreadySelected:    "book is already selected",
	ReasonQuotaExceeded:      "recommendation limit reached",
}

// AdmitResult is the outcome of a local selection attempt.
type AdmitResult struct {
	Admitted bool        `json:"admitted"`
	Reason   AdmitReason `json:"reason"`
	Message  string      `json:"message"`
}

// Refuse builds a rejected AdmitResult for reason.
func Refuse(reason AdmitReason) AdmitResult {
	return AdmitResult{Reason: reason, Message: reasonMessages[reason]}
}

func admit() AdmitResult {
	return AdmitResult{Admitted: true, Reason: ReasonAdmitted, Message: reasonMessages[ReasonAdmitted]}
}

// Err returns a SelectionRejected error when the attempt was refused.
func (r AdmitResult) Err() error {
	if r.Admitted {
		return nil
	}
	err := apperrors.SelectionRejected(r.Message)
	err.Details = []string{string(r.Reason)}
	return err
}

// ValidateSelectionAttempt decides locally, without any network call, whether
// candidate may join the selection for target.
func ValidateSelectionAttempt(q RecommendationQuota, sel Selection, candidate, target string, existing []string) AdmitResult {
	candidate = NormalizeISBN(candidate)
	switch {
	case candidate == "":
		return Refuse(ReasonBlankCandidate)
	case !q.CanRecommend:
		return Refuse(ReasonNotPermitted)
	case candidate == NormalizeISBN(target):
		return Refuse(ReasonTargetBook)
	case containsISBN(existing, candidate):
		return Refuse(ReasonAlreadyRecommended)
	case sel.Contains(candidate):
		return Refuse(ReasonAlreadySelected)
	case !CanAdmit(q, sel.Len()+1):
		return Refuse(ReasonQuotaExceeded)
	}
	return admit()
}

// ValidateBatchSize decides whether a selection of size books may be sent as
// one batch against q.
func ValidateBatchSize(q RecommendationQuota, size int) AdmitResult {
	switch {
	case !q.CanRecommend:
		return Refuse(ReasonNotPermitted)
	case !CanAdmit(q, size):
		return Refuse(ReasonQuotaExceeded)
	}
	return admit()
}

func containsISBN(list []string, isbn string) bool {
	for _, v := range list {
		if NormalizeISBN(v) == isbn {
			return true
		}
	}
	return false
}

// NormalizeISBN trims an ISBN, drops hyphens and spaces, and upper-cases the
// check character so equal books compare equal.
func NormalizeISBN(isbn string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(isbn)))
}
