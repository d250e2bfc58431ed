package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "Customer"
	RoleAdmin    = "Admin"

	PaymentCOD = "COD_PAYMENT"
)

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	Username     string    `gorm:"not null"                        json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"            json:"email"`
	PasswordHash string    `gorm:"not null"                        json:"-"`
	Role         string    `gorm:"not null;default:Customer"       json:"role"`
	Image        []byte    `                                       json:"-"`
	ImageType    string    `                                       json:"-"`
	CreatedAt    time.Time `                                       json:"created_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	return nil
}

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

type Product struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string    `gorm:"not null"                    json:"name"`
	Price       float64   `gorm:"not null"                    json:"price"`
	Description string    `gorm:"not null"                    json:"description"`
	Image       []byte    `                                   json:"-"`
	ImageType   string    `                                   json:"-"`
	CreatedAt   time.Time `                                   json:"created_at"`
	UpdatedAt   time.Time `                                   json:"updated_at"`
	Reviews     []Review  `gorm:"constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (p *Product) HasImage() bool { return len(p.Image) > 0 || p.ImageType != "" }

type CartItem struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"                         json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_line" json:"user_id"`
	ProductID string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity>0"                 json:"quantity"`
	CreatedAt time.Time `                                                           json:"created_at"`
	Product   *Product  `gorm:"constraint:OnDelete:CASCADE"                         json:"product,omitempty"`
}

func (ci *CartItem) BeforeCreate(*gorm.DB) error {
	if ci.ID == "" {
		ci.ID = uuid.NewString()
	}
	return nil
}

type Order struct {
	ID           string      `gorm:"primaryKey;type:varchar(36)"  json:"id"`
	OrderID      string      `gorm:"uniqueIndex;not null"         json:"order_id"`
	PaymentID    string      `gorm:"not null"                     json:"payment_id"`
	UserID       string      `gorm:"type:varchar(36);index;not null" json:"user_id"`
	PurchaseDate time.Time   `gorm:"not null"                     json:"purchase_date"`
	FinalPrice   float64     `gorm:"not null"                     json:"final_price"`
	Lines        []OrderLine `gorm:"constraint:OnDelete:CASCADE"  json:"lines"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// OrderLine is a value snapshot and carries no foreign key to products.
type OrderLine struct {
	ID        string  `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	OrderID   string  `gorm:"type:varchar(36);index;not null" json:"-"`
	ProductID string  `gorm:"type:varchar(36)"                json:"product_id"`
	Name      string  `                                       json:"name"`
	Price     float64 `                                       json:"price"`
	Quantity  int     `gorm:"not null"                        json:"quantity"`
}

func (ol *OrderLine) BeforeCreate(*gorm.DB) error {
	if ol.ID == "" {
		ol.ID = uuid.NewString()
	}
	return nil
}

func (ol OrderLine) Subtotal() float64 { return ol.Price * float64(ol.Quantity) }

type Review struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"     json:"id"`
	ProductID string    `gorm:"type:varchar(36);index;not null" json:"product_id"`
	UserID    string    `gorm:"type:varchar(36);index;not null" json:"user_id"`
	Author    string    `gorm:"not null"                        json:"author"`
	Rating    int       `gorm:"not null;check:rating between 1 and 5" json:"rating"`
	Body      string    `gorm:"not null"                        json:"body"`
	Date      time.Time `gorm:"not null"                        json:"date"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func All() []any {
	return []any{&User{}, &Product{}, &Review{}, &CartItem{}, &Order{}, &OrderLine{}}
}
