package submission

import "github.com/muhtarbag/fenomen-pet/internal/store"

// RejectionReason is the moderator's reason for turning a submission down.
type RejectionReason string

const (
	ReasonDuplicatePhoto     RejectionReason = "duplicate_photo"
	ReasonInappropriatePhoto RejectionReason = "inappropriate_photo"
	ReasonInvalidUsername    RejectionReason = "invalid_username"
	ReasonCopiedPhoto        RejectionReason = "copied_photo"
)

var reasonLabels = map[RejectionReason]string{
	ReasonDuplicatePhoto:     "Bu fotoğraf daha önce gönderilmiş",
	ReasonInappropriatePhoto: "Uygunsuz fotoğraf",
	ReasonInvalidUsername:    "Geçersiz kullanıcı adı",
	ReasonCopiedPhoto:        "Fotoğraf başka bir kaynaktan kopyalanmış",
}

func (r RejectionReason) IsValid() bool {
	_, ok := reasonLabels[r]
	return ok
}

// Label falls back to the raw value for reasons recorded before the
// current list existed.
func (r RejectionReason) Label() string {
	if label, ok := reasonLabels[r]; ok {
		return label
	}
	return string(r)
}

func StatusLabel(s store.SubmissionStatus) string {
	switch s {
	case store.StatusApproved:
		return "Onaylandı"
	case store.StatusRejected:
		return "Reddedildi"
	default:
		return "İnceleniyor"
	}
}

const (
	msgNotFound          = "Gönderi bulunamadı"
	msgRetry             = "Bir hata oluştu. Lütfen tekrar deneyin."
	msgUsernameRequired  = "Lütfen kullanıcı adınızı girin"
	msgNoSubmission      = "Bu kullanıcı adına ait gönderi bulunamadı."
	msgSelectSubmissions = "Lütfen en az bir gönderi seçin"
	msgInvalidReason     = "Geçersiz red nedeni"
	msgInvalidID         = "Geçersiz gönderi numarası"

	msgDeleteLikes      = "Beğeniler silinirken bir hata oluştu"
	msgDeleteAnonymous  = "Anonim beğeniler silinirken bir hata oluştu"
	msgDeleteRejected   = "Reddedilen kayıt silinirken bir hata oluştu"
	msgDeleteSubmission = "Gönderi silinirken bir hata oluştu"
	msgDeleted          = "Gönderi başarıyla silindi"

	msgApproved = "Gönderi onaylandı"
	msgRejected = "Gönderi reddedildi"
	msgPending  = "Gönderi incelemeye alındı"
)
