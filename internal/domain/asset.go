package domain

import "time"

type AssetType string

const (
	AssetTypeLand         AssetType = "land"
	AssetTypeLandBuilding AssetType = "land_building"
)

func (t AssetType) Valid() bool {
	return t == AssetTypeLand || t == AssetTypeLandBuilding
}

type AssetStatus string

const (
	AssetStatusAvailable   AssetStatus = "available"
	AssetStatusRented      AssetStatus = "rented"
	AssetStatusMaintenance AssetStatus = "maintenance"
	AssetStatusReserved    AssetStatus = "reserved"
)

func (s AssetStatus) Valid() bool {
	switch s {
	case AssetStatusAvailable, AssetStatusRented, AssetStatusMaintenance, AssetStatusReserved:
		return true
	}
	return false
}

type Asset struct {
	ID           int64       `json:"id"`
	Type         AssetType   `json:"type"`
	Title        string      `json:"title"`
	Address      string      `json:"address"`
	City         string      `json:"city"`
	Province     string      `json:"province"`
	LandArea     float64     `json:"land_area_m2"`
	BuildingArea float64     `json:"building_area_m2"`
	MonthlyPrice int64       `json:"monthly_price"`
	Status       AssetStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Validate checks the descriptive attributes an administrator supplies.
func (a *Asset) Validate() error {
	switch {
	case !a.Type.Valid():
		return ErrInvalidAsset.WithMessage("asset type must be land or land_building")
	case a.Title == "":
		return ErrInvalidAsset.WithMessage("asset title is required")
	case a.LandArea <= 0:
		return ErrInvalidAsset.WithMessage("land area must be positive")
	case a.Type == AssetTypeLand && a.BuildingArea != 0:
		return ErrInvalidAsset.WithMessage("land assets have no building area")
	case a.Type == AssetTypeLandBuilding && a.BuildingArea <= 0:
		return ErrInvalidAsset.WithMessage("building area must be positive")
	case a.MonthlyPrice <= 0:
		return ErrInvalidAsset.WithMessage("monthly price must be positive")
	}
	return nil
}

// AssetFilter narrows asset listings. Zero values mean "any".
type AssetFilter struct {
	Status   AssetStatus
	Type     AssetType
	City     string
	MaxPrice int64
	Page     int32
	PageSize int32
}

// AssetFeatures is the input of a price estimate.
type AssetFeatures struct {
	Type         AssetType `json:"type"`
	LandArea     float64   `json:"land_area_m2"`
	BuildingArea float64   `json:"building_area_m2"`
	City         string    `json:"city"`
	Province     string    `json:"province"`
}

func (a *Asset) Features() AssetFeatures {
	return AssetFeatures{Type: a.Type, LandArea: a.LandArea, BuildingArea: a.BuildingArea, City: a.City, Province: a.Province}
}
