package domain

import "time"

// ShortLink представляет сокращенную ссылку
type ShortLink struct {
	ID            int64      `gorm:"primaryKey;column:id" json:"id"`
	Code          string     `gorm:"column:code;size:10;uniqueIndex;not null" json:"code"`
	OriginalURL   string     `gorm:"column:original_url;size:2000;not null" json:"original_url"`
	Title         *string    `gorm:"column:title;size:200" json:"title,omitempty"`
	Description   *string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	CreatedBy     *int64     `gorm:"column:created_by;index" json:"created_by,omitempty"` // NULL для анонимных ссылок
	IsActive      bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	ClickCount    int64      `gorm:"column:click_count;not null;default:0" json:"click_count"`
	LastClickedAt *time.Time `gorm:"column:last_clicked_at" json:"last_clicked_at,omitempty"`

	// Relationships
	Creator *User   `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Clicks  []Click `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"clicks,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (ShortLink) TableName() string {
	return "short_links"
}

// IsExpired проверяет, истек ли срок действия ссылки
func (l *ShortLink) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

// ShortURL возвращает полный короткий URL для заданного базового адреса
func (l *ShortLink) ShortURL(baseURL string) string {
	return baseURL + "/" + l.Code
}
