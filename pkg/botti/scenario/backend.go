package scenario

import "strings"

// Backend serves the domain tools with fixed demo data. A real deployment
// would swap this for calls into the business systems.
type Backend struct{}

// NewBackend returns the demo backend.
func NewBackend() *Backend { return &Backend{} }

// ---------- Hairdresser ----------

func (b *Backend) CheckAppointmentCalendar(startDate, endDate string) map[string]any {
	return map[string]any{
		"available_slots": []map[string]any{
			{"date": startDate, "times": []string{"09:00", "11:00", "15:00"}},
			{"date": endDate, "times": []string{"10:00", "14:00", "16:00"}},
		},
		"message": "Available slots between " + startDate + " and " + endDate + ".",
	}
}

func (b *Backend) GetServices(gender string) map[string]any {
	var services []map[string]any
	if strings.EqualFold(gender, "female") {
		services = []map[string]any{
			{"name": "Haircut", "duration_minutes": 30, "price_eur": 25},
			{"name": "Coloring", "duration_minutes": 60, "price_eur": 60},
			{"name": "Styling", "duration_minutes": 45, "price_eur": 35},
		}
	} else {
		services = []map[string]any{
			{"name": "Haircut", "duration_minutes": 20, "price_eur": 20},
			{"name": "Shaving", "duration_minutes": 15, "price_eur": 15},
		}
	}
	return map[string]any{"gender": gender, "services": services}
}

func (b *Backend) GetOrderHistory(phoneNumber string) map[string]any {
	return map[string]any{
		"phone_number": phoneNumber,
		"history": []map[string]any{
			{"date": "2025-06-01", "service": "Haircut", "price_eur": 25, "status": "completed"},
			{"date": "2025-05-15", "service": "Coloring", "price_eur": 60, "status": "completed"},
		},
	}
}

func (b *Backend) BookAppointment(phoneNumber, service, preferredTime string) map[string]any {
	return map[string]any{
		"phone_number":        phoneNumber,
		"service":             service,
		"preferred_time":      preferredTime,
		"confirmation_number": "HAIR123456",
		"status":              "booked",
		"message":             "Appointment for " + service + " booked at " + preferredTime + ".",
	}
}

func (b *Backend) CancelAppointment(phoneNumber string) map[string]any {
	return map[string]any{
		"phone_number": phoneNumber,
		"status":       "cancelled",
		"message":      "Your appointment has been cancelled.",
	}
}

// ---------- Car Parts Retailer ----------

func (b *Backend) FindCarInfo(licensePlate string) map[string]any {
	return map[string]any{
		"license_plate": licensePlate,
		"car": map[string]any{
			"make":  "Toyota",
			"model": "Corolla",
			"year":  2018,
			"color": "Blue",
			"vin":   "JT123456789012345",
		},
	}
}

func (b *Backend) FindCompatibleParts(licensePlate, partType string) map[string]any {
	return map[string]any{
		"license_plate": licensePlate,
		"part_type":     partType,
		"compatible_parts": []map[string]any{
			{"part_id": "CP-001", "name": partType + " Premium", "price_eur": 120, "in_stock": true},
			{"part_id": "CP-002", "name": partType + " Standard", "price_eur": 80, "in_stock": false},
		},
	}
}

func (b *Backend) PlacePartOrder(phoneNumber, partID string, quantity int) map[string]any {
	return map[string]any{
		"order_id":           "ORDER987654",
		"phone_number":       phoneNumber,
		"part_id":            partID,
		"quantity":           quantity,
		"status":             "placed",
		"estimated_delivery": "2025-07-30",
	}
}

func (b *Backend) CheckPartOrders(phoneNumber string) map[string]any {
	return map[string]any{
		"phone_number": phoneNumber,
		"orders": []map[string]any{
			{
				"order_id":           "ORDER987654",
				"part_id":            "CP-001",
				"status":             "shipped",
				"shipped_date":       "2025-07-25",
				"estimated_delivery": "2025-07-30",
			},
		},
	}
}

// ---------- Bookstore ----------

func (b *Backend) ViewBookOrderHistory(phoneNumber string) map[string]any {
	return map[string]any{
		"phone_number": phoneNumber,
		"orders": []map[string]any{
			{"title": "1984", "author": "George Orwell", "date": "2025-06-10", "status": "delivered"},
			{"title": "Brave New World", "author": "Aldous Huxley", "date": "2025-05-20", "status": "delivered"},
		},
	}
}

func (b *Backend) SuggestBooks(genre, author string) map[string]any {
	var suggestions []map[string]any
	switch {
	case genre != "":
		suggestions = []map[string]any{
			{"title": "The Great Gatsby", "author": "F. Scott Fitzgerald", "genre": genre},
			{"title": "To Kill a Mockingbird", "author": "Harper Lee", "genre": genre},
		}
	case author != "":
		suggestions = []map[string]any{
			{"title": "Book by " + author, "author": author, "genre": "Fiction"},
		}
	default:
		suggestions = []map[string]any{
			{"title": "Random Book", "author": "Random Author", "genre": "General"},
		}
	}
	return map[string]any{"genre": genre, "author": author, "suggestions": suggestions}
}

func (b *Backend) CheckBookStock(title, author string) map[string]any {
	return map[string]any{
		"title":       title,
		"author":      author,
		"in_stock":    true,
		"stock_count": 7,
		"location":    "Aisle 3, Shelf B",
	}
}

func (b *Backend) ReserveBook(phoneNumber, title string) map[string]any {
	return map[string]any{
		"phone_number":    phoneNumber,
		"title":           title,
		"reservation_id":  "RES123456",
		"status":          "reserved",
		"pickup_deadline": "2025-08-01",
	}
}

func (b *Backend) CancelBookReservation(phoneNumber, title string) map[string]any {
	return map[string]any{
		"phone_number": phoneNumber,
		"title":        title,
		"status":       "cancelled",
		"message":      "Reservation for '" + title + "' has been cancelled.",
	}
}
