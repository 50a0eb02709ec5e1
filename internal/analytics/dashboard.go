package analytics

import (
	"time"

	"github.com/garmentrack/garmentrack/internal/models"
)

// Input is the raw material of a dashboard. Callers scope the collections
// to what the viewer may see before aggregating.
type Input struct {
	Orders   []models.Order
	Products []models.Product
	Users    []models.User
	Window   Window
	Now      time.Time
	Location *time.Location
}

type Totals struct {
	Orders        int64 `json:"orders"`
	RevenueCents  int64 `json:"revenueCents"`
	Products      int64 `json:"products"`
	Users         int64 `json:"users"`
	PendingOrders int64 `json:"pendingOrders"`
}

type Dashboard struct {
	Role             models.Role `json:"role"`
	Window           Window      `json:"window"`
	GeneratedAt      time.Time   `json:"generatedAt"`
	Totals           Totals      `json:"totals"`
	OrdersByDay      []DayBucket `json:"ordersByDay"`
	RevenueByDay     []DayBucket `json:"revenueByDay"`
	NewProductsByDay []DayBucket `json:"newProductsByDay,omitempty"`
	NewUsersByDay    []DayBucket `json:"newUsersByDay,omitempty"`
	StatusBreakdown  []Slice     `json:"statusBreakdown"`
}

func orderCreatedAt(o models.Order) time.Time { return o.CreatedAt }
func orderTotal(o models.Order) int64 { return o.TotalCents }
func orderStatus(o models.Order) string { return string(o.Status) }
func productCreatedAt(p models.Product) time.Time { return p.CreatedAt }
func userCreatedAt(u models.User) time.Time { return u.CreatedAt }

// AdminDashboard covers every order, product and user in the window.
func AdminDashboard(in Input) Dashboard {
	d := baseDashboard(models.RoleAdmin, in, ManagementStatusLabels)

	products := InWindow(in.Products, productCreatedAt, in.Window, in.Now)
	users := InWindow(in.Users, userCreatedAt, in.Window, in.Now)
	d.Totals.Products = int64(len(products))
	d.Totals.Users = int64(len(users))
	d.NewProductsByDay = CountByDay(products, productCreatedAt, in.Location)
	d.NewUsersByDay = CountByDay(users, userCreatedAt, in.Location)
	return d
}

// ManagerDashboard expects Orders and Products already limited to the manager's catalog.
func ManagerDashboard(in Input) Dashboard {
	d := baseDashboard(models.RoleManager, in, ManagementStatusLabels)

	products := InWindow(in.Products, productCreatedAt, in.Window, in.Now)
	d.Totals.Products = int64(len(products))
	d.NewProductsByDay = CountByDay(products, productCreatedAt, in.Location)
	return d
}

// BuyerDashboard expects Orders limited to the buyer. Revenue reads as spend.
func BuyerDashboard(in Input) Dashboard {
	return baseDashboard(models.RoleBuyer, in, BuyerStatusLabels)
}

// ForRole picks the dashboard matching role.
func ForRole(role models.Role, in Input) Dashboard {
	switch role {
	case models.RoleAdmin:
		return AdminDashboard(in)
	case models.RoleManager:
		return ManagerDashboard(in)
	default:
		return BuyerDashboard(in)
	}
}

func baseDashboard(role models.Role, in Input, labels []string) Dashboard {
	if in.Window == "" {
		in.Window = Window7Days
	}
	orders := InWindow(in.Orders, orderCreatedAt, in.Window, in.Now)

	d := Dashboard{
		Role:            role,
		Window:          in.Window,
		GeneratedAt:     in.Now,
		OrdersByDay:     CountByDay(orders, orderCreatedAt, in.Location),
		RevenueByDay:    SumByDay(orders, orderCreatedAt, orderTotal, in.Location),
		StatusBreakdown: StatusBreakdown(orders, orderStatus, labels),
	}
	d.Totals.Orders = int64(len(orders))
	for _, order := range orders {
		d.Totals.RevenueCents += order.TotalCents
		if order.Status == models.StatusPending {
			d.Totals.PendingOrders++
		}
	}
	return d
}
