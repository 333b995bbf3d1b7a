package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var labels = []string{"scope"}

var SeatsTotal *prometheus.GaugeVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "github_copilot_seats_total",
	Help: "Number of assigned Copilot seats for the scope as of the last collection",
}, labels)

var SeatsActive *prometheus.GaugeVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "github_copilot_seats_active",
	Help: "Number of Copilot seats with activity in the last 30 days for the scope",
}, labels)

var SeatPages *prometheus.GaugeVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "github_copilot_seat_pages",
	Help: "Number of seat pages fetched from the GitHub API on the last collection",
}, labels)
