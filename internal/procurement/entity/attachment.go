package entity

import "time"

// 附件归属
const (
	AttachmentOwnerPurchase    = "purchase"
	AttachmentOwnerServiceSale = "service_sale"
)

// Attachment 附件（发票 / NF 等），文件本体存 MinIO
type Attachment struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	OwnerType  string    `json:"owner_type" gorm:"size:20;not null;index:idx_attachment_owner"`
	OwnerID    string    `json:"owner_id" gorm:"size:32;not null;index:idx_attachment_owner"`
	FileName   string    `json:"file_name" gorm:"size:255;not null"`
	ObjectKey  string    `json:"-" gorm:"size:512;not null"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type" gorm:"size:100"`
	UploadedBy string    `json:"uploaded_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}
