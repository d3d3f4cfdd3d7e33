package activitypub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activitiesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fediscus_activities_received_total",
	Help: "Number of inbound activities by type and outcome",
}, []string{"type", "result"})

var followsAccepted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fediscus_follows_accepted_total",
	Help: "Number of inbound follows accepted",
})

var followsSent = promauto.NewCounter(prometheus.CounterOpts{
	Name: "fediscus_follows_sent_total",
	Help: "Number of follows sent by the local account",
})

var notesTracked = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fediscus_notes_tracked_total",
	Help: "Number of notes tracked, by position in their thread",
}, []string{"kind"})
