package domain

import (
	"net"
	"time"
)

// Click представляет одно срабатывание редиректа по короткой ссылке
type Click struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID    int64     `gorm:"column:link_id;not null;index:idx_clicks_link_clicked,priority:1" json:"link_id"`
	ClickedAt time.Time `gorm:"column:clicked_at;not null;index;index:idx_clicks_link_clicked,priority:2,sort:desc" json:"clicked_at"`
	IPAddress *net.IP   `gorm:"column:ip_address;type:inet" json:"ip_address,omitempty"`
	UserAgent *string   `gorm:"column:user_agent;type:text" json:"user_agent,omitempty"`
	Referer   *string   `gorm:"column:referer;size:2000" json:"referer,omitempty"`

	// Денормализованные поля, разобранные из User-Agent при записи
	Browser *string `gorm:"column:browser;size:100" json:"browser,omitempty"`
	OS      *string `gorm:"column:os;size:100" json:"os,omitempty"`
	Device  *string `gorm:"column:device;size:100" json:"device,omitempty"`

	// Геоданные от внешнего резолвера, best-effort
	Country *string `gorm:"column:country;size:100" json:"country,omitempty"`
	City    *string `gorm:"column:city;size:100" json:"city,omitempty"`

	// Relationships
	Link *ShortLink `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (Click) TableName() string {
	return "clicks"
}
