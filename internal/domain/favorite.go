package domain

import "time"

type Favorite struct {
	UserID    int64     `json:"user_id"`
	AssetID   int64     `json:"asset_id"`
	CreatedAt time.Time `json:"created_at"`
}
