package model

type BookingStatus string

const (
	BookingNew       BookingStatus = "new"
	BookingInContact BookingStatus = "in_contact"
	BookingBooked    BookingStatus = "booked"
	BookingOnWay     BookingStatus = "on_way"
	BookingDone      BookingStatus = "done"
)

type PriceType string

const (
	PriceFixed      PriceType = "Festpreis"
	PriceNegotiable PriceType = "Verhandelbar"
	PriceAgreement  PriceType = "Nach Vereinbarung"
)

type StopAddress struct {
	City        string `json:"city"`
	Zip         int    `json:"zip"`
	Street      string `json:"street"`
	HouseNumber int    `json:"houseNumber"`
}

type GeoLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type FreightDetails struct {
	TruckType       string  `json:"truckType"`
	GoodsType       string  `json:"goodsType"`
	AvailableVolume float64 `json:"availableVolume"`
}

type Booking struct {
	Status   BookingStatus `json:"status"`
	BookedBy string        `json:"bookedBy,omitempty"`
}

type FreightUser struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Freight is one transport order from the listing endpoint.
type Freight struct {
	ID                     string         `json:"_id"`
	User                   FreightUser    `json:"user"`
	Company                string         `json:"company"`
	Date                   string         `json:"date"`
	Start                  StopAddress    `json:"start"`
	Destination            StopAddress    `json:"destination"`
	Details                FreightDetails `json:"details"`
	Booking                Booking        `json:"booking"`
	Price                  float64        `json:"price"`
	PriceType              PriceType      `json:"priceType"`
	GeolocationStart       GeoLocation    `json:"geolocationStart"`
	GeolocationDestination GeoLocation    `json:"geolocationDestination"`
	Distance               float64        `json:"distance,omitempty"`
	IsActive               bool           `json:"isActive"`
}

// InMotion reports whether the freight is currently being hauled.
func (f Freight) InMotion() bool {
	return f.Booking.Status == BookingOnWay
}
