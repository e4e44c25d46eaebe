package api

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/removal"
	"github.com/erazemk/stash/internal/store"
)

type stashRequest struct {
	CourseID        int64  `json:"course_id"`
	Name            string `json:"name"`
	Enabled         *bool  `json:"enabled"`
	SwappingEnabled bool   `json:"swapping_enabled"`
}

func (r stashRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CourseID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
	)
}

type itemRequest struct {
	Name        string `json:"name"`
	Detail      string `json:"detail"`
	AmountLimit *int   `json:"amount_limit"`
}

func (r itemRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Detail, validation.Length(0, 2000)),
		validation.Field(&r.AmountLimit, validation.NilOrNotEmpty, validation.Min(1)),
	)
}

type grantRequest struct {
	Quantity int `json:"quantity"`
}

func (r grantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Quantity, validation.Min(0)),
	)
}

type createSwapRequest struct {
	InitiatorID int64            `json:"initiator_id"`
	ReceiverID  int64            `json:"receiver_id"`
	Offer       []model.SwapLine `json:"offer"`
	Request     []model.SwapLine `json:"request"`
	Message     string           `json:"message"`
}

func (r createSwapRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReceiverID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Message, validation.Length(0, 1000)),
	)
}

type dropRequest struct {
	ItemID         int64  `json:"item_id"`
	Name           string `json:"name"`
	MaxPickup      *int   `json:"max_pickup"`
	PickupInterval *int   `json:"pickup_interval"`
}

func (r dropRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ItemID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.MaxPickup, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&r.PickupInterval, validation.Min(0)),
	)
}

type tradeRequest struct {
	Name      string            `json:"name"`
	GainTitle string            `json:"gain_title"`
	LossTitle string            `json:"loss_title"`
	Items     []model.TradeItem `json:"items"`
}

func (r tradeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.GainTitle, validation.Length(0, 255)),
		validation.Field(&r.LossTitle, validation.Length(0, 255)),
		validation.Field(&r.Items, validation.Required),
	)
}

type removalRequest removal.SaveRequest

func (r removalRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ModuleName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.CMID, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.Detail, validation.Length(0, 2000)),
		validation.Field(&r.Items, validation.Required),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Password, validation.Required, validation.Length(model.MinPasswordLength, 0)),
		validation.Field(&r.Role, validation.Required, validation.In(model.RoleAdmin, model.RoleTeacher, model.RoleStudent)),
	)
}

type leaderboardSettingRequest struct {
	Board    string `json:"board"`
	Enabled  bool   `json:"enabled"`
	RowLimit int    `json:"row_limit"`
}

func (r leaderboardSettingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Board, validation.Required, validation.In(store.BoardUniqueItems, store.BoardMostOfItem)),
		validation.Field(&r.RowLimit, validation.Min(0), validation.Max(100)),
	)
}
