package like

// Category is the kind of notice a toggle produces. Clients switch on the
// category, the message is display text.
type Category string

const (
	CategorySuccess      Category = "success"
	CategoryAlreadyLiked Category = "already_liked"
	CategoryCooldown     Category = "cooldown_active"
	CategoryNotFound     Category = "not_found"
	CategoryRetry        Category = "generic_retry"
	CategoryValidation   Category = "validation"
	CategoryPlaceholder  Category = "placeholder"
	CategoryIgnored      Category = "ignored"
)

const (
	msgLiked        = "Beğeni kaydedildi!"
	msgUnliked      = "Beğeni kaldırıldı"
	msgAlreadyLiked = "Bu gönderiyi zaten beğenmişsiniz."
	msgCooldown     = "24 saat içinde tekrar beğeni yapamazsınız."
	msgRetry        = "Bir hata oluştu. Lütfen tekrar deneyin."
	msgPlaceholder  = "Bu bir örnek gönderidir, beğeni yapılamaz."
	msgNotFound     = "Gönderi bulunamadı"
	msgInvalidID    = "Geçersiz gönderi numarası"
)

type Outcome struct {
	Category Category `json:"category"`
	Message  string   `json:"message,omitempty"`
	State    State    `json:"state"`
}
