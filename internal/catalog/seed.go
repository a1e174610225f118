package catalog

import "github.com/iliyamo/spot-saver/internal/model"

const unsplash = "https://images.unsplash.com/"

func img(id string) string {
	return unsplash + id + "?w=800&auto=format&fit=crop&q=80&ixlib=rb-4.0.3"
}

// SeedLocations returns the built-in catalog.  It backs StaticSource and
// seeds an empty locations table at startup.
func SeedLocations() []model.Location {
	return []model.Location{
		{
			ID:             "loc1",
			Name:           "Premium Downtown Garage",
			Address:        "123 Main St, Financial District",
			Description:    "Our flagship downtown parking facility offering premium amenities and convenient access to the financial district. Featuring top-tier security, EV charging stations, and optional valet service.",
			OperatingHours: "24/7",
			ContactPhone:   "+1 (555) 123-4567",
			RateCents:      699,
			RateUnit:       model.RateHourly,
			Secure:         true,
			Amenities:      "24/7 Security, EV Fast Charging, Valet Service, Car Wash, CCTV Monitoring",
			Images: []string{
				img("photo-1470224114660-3f6686c562eb"),
				img("photo-1621977717126-e29965156cb1"),
				img("photo-1610984337706-542ffe5e3c11"),
			},
			Slots: []model.Slot{
				{ID: "A1", Number: "A1", Type: model.SlotPremium, Available: true, Features: []string{"Extra Wide", "Near Exit"}},
				{ID: "A2", Number: "A2", Type: model.SlotPremium, Available: true, Features: []string{"Corner Spot", "Easy Access"}},
				{ID: "B1", Number: "B1", Type: model.SlotCompact, Available: true, Features: []string{"Economy Rate"}},
				{ID: "B2", Number: "B2", Type: model.SlotCompact, Available: false, Features: []string{"Economy Rate"}},
				{ID: "C1", Number: "C1", Type: model.SlotStandard, Available: true, Features: []string{"Standard Size"}},
				{ID: "C2", Number: "C2", Type: model.SlotStandard, Available: false, Features: []string{"Standard Size"}},
				{ID: "D1", Number: "D1", Type: model.SlotEV, Available: true, Features: []string{"Tesla Supercharger", "Premium Location"}},
				{ID: "D2", Number: "D2", Type: model.SlotEV, Available: true, Features: []string{"Universal EV Charger", "Premium Location"}},
			},
			Reviews: []model.Review{
				{ID: 1, Author: "John D.", Rating: 5, Comment: "Excellent service and very secure facility. Will use again!", Date: "2023-12-15"},
				{ID: 2, Author: "Sarah M.", Rating: 4, Comment: "Great location, but a bit pricey. The valet service was worth it though.", Date: "2023-11-22"},
				{ID: 3, Author: "Robert T.", Rating: 5, Comment: "The EV charging stations are fast and always available. Perfect for my daily commute.", Date: "2024-01-05"},
			},
		},
		{
			ID:             "loc2",
			Name:           "Central Park Executive Lot",
			Address:        "456 Park Avenue, Midtown",
			Description:    "Experience luxury parking in the heart of the city. Our executive lot offers premium services including covered parking, car detailing, and an indoor waiting area with complimentary refreshments.",
			OperatingHours: "6:00 AM - 12:00 AM",
			ContactPhone:   "+1 (555) 987-6543",
			RateCents:      999,
			RateUnit:       model.RateHourly,
			Secure:         true,
			Amenities:      "Covered Parking, 24/7 Security, Car Detailing, Digital Entry, Indoor Waiting Area",
			Images: []string{
				img("photo-1573348722427-f1d6819fdf98"),
				img("photo-1494337095615-b5f370aad75f"),
				img("photo-1573348722427-f1d6819fdf98"),
			},
			Slots: []model.Slot{
				{ID: "P1", Number: "P1", Type: model.SlotPremium, Available: true, Features: []string{"Reserved Executive", "Direct Elevator Access"}},
				{ID: "P2", Number: "P2", Type: model.SlotPremium, Available: true, Features: []string{"Reserved Executive", "Near Entrance"}},
				{ID: "P3", Number: "P3", Type: model.SlotStandard, Available: true, Features: []string{"Standard Size", "Covered"}},
				{ID: "P4", Number: "P4", Type: model.SlotCompact, Available: true, Features: []string{"Economy Rate", "Covered"}},
				{ID: "P5", Number: "P5", Type: model.SlotCompact, Available: false, Features: []string{"Economy Rate", "Covered"}},
				{ID: "P6", Number: "P6", Type: model.SlotPremium, Available: true, Features: []string{"VIP Section", "Valet Priority"}},
			},
			Reviews: []model.Review{
				{ID: 4, Author: "Michael B.", Rating: 5, Comment: "Exceptional service! The car detailing service exceeded my expectations.", Date: "2024-01-18"},
				{ID: 5, Author: "Emily K.", Rating: 4, Comment: "Beautifully maintained facility with excellent security. A bit expensive but worth it.", Date: "2023-12-05"},
				{ID: 6, Author: "David W.", Rating: 5, Comment: "The executive slots are perfectly located. Makes my daily routine so much better.", Date: "2024-02-11"},
			},
		},
		{
			ID:             "loc3",
			Name:           "Riverside Transit Hub",
			Address:        "789 Waterfront Drive, Riverside",
			Description:    "Perfect for commuters, our Riverside Transit Hub offers convenient parking with direct access to public transportation. We also provide secure bicycle storage for eco-friendly commuters.",
			OperatingHours: "24/7",
			ContactPhone:   "+1 (555) 456-7890",
			RateCents:      499,
			RateUnit:       model.RateHourly,
			Amenities:      "Public Transit Access, Bicycle Storage, 24/7 Access, Monthly Passes, CCTV Surveillance",
			Images: []string{
				img("photo-1590674899484-15aa421693d3"),
				img("photo-1562515310-5b432b08c5fc"),
				img("photo-1583674078256-9873a2817276"),
			},
			Slots: []model.Slot{
				{ID: "R1", Number: "R1", Type: model.SlotStandard, Available: true, Features: []string{"Near Transit Stop"}},
				{ID: "R2", Number: "R2", Type: model.SlotStandard, Available: true, Features: []string{"Near Transit Stop"}},
				{ID: "R3", Number: "R3", Type: model.SlotStandard, Available: true, Features: []string{"Covered Walkway"}},
				{ID: "R4", Number: "R4", Type: model.SlotCompact, Available: true, Features: []string{"Economy Rate"}},
				{ID: "R5", Number: "R5", Type: model.SlotCompact, Available: false, Features: []string{"Economy Rate"}},
				{ID: "R6", Number: "R6", Type: model.SlotEV, Available: true, Features: []string{"Universal EV Charger"}},
			},
			Reviews: []model.Review{
				{ID: 7, Author: "Thomas H.", Rating: 4, Comment: "Very convenient for daily commuting. The direct access to the bus station is a huge time saver.", Date: "2023-11-30"},
				{ID: 8, Author: "Laura M.", Rating: 5, Comment: "The monthly passes are a great value. I've been using this lot for a year now.", Date: "2024-01-22"},
				{ID: 9, Author: "Angela P.", Rating: 4, Comment: "I love that I can store my bike securely. Perfect for my hybrid commute.", Date: "2023-12-18"},
			},
		},
	}
}
