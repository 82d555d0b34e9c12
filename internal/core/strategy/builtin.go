package strategy

import (
	v1 "github.com/pulse-lab/pulse-reports/internal/api/v1"
	"github.com/pulse-lab/pulse-reports/internal/core/report"
)

// RegisterBuiltins installs the domain reducers for the known event types.
// Called once during assembly, before any traffic is consumed.
func RegisterBuiltins(r *Registry) {
	r.Register("orders.created", func(event *v1.Event, in report.Indicators) (report.Indicators, error) {
		in.Inc("totalOrders")
		in.Inc("ordersCreated")
		in.Add("totalOrderValue", NumberField(event, "total"))
		return in, nil
	})

	r.Register("orders.updated", func(event *v1.Event, in report.Indicators) (report.Indicators, error) {
		in.Inc("totalOrders")
		in.Inc("ordersUpdated")
		return in, nil
	})

	r.Register("delivery.completed", func(event *v1.Event, in report.Indicators) (report.Indicators, error) {
		in.Inc("deliveriesCompleted")
		in.Add("totalDeliveryTime", NumberField(event, "duration"))
		return in, nil
	})

	r.Register("notification.sent", func(event *v1.Event, in report.Indicators) (report.Indicators, error) {
		in.Inc("notificationsSent")
		in.IncBreakdown("notificationsByType", StringField(event, "type", "unknown"))
		return in, nil
	})
}
