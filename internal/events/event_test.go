package events

import (
	"encoding/json"
	"testing"
	"time"

	"ridedispatch/internal/domain"
)

func TestEventAudiences(t *testing.T) {
	cases := []struct {
		event Event
		name  Name
		want  []Audience
	}{
		{NewRideAccepted("r1", "d1"), RideAccepted, []Audience{AudienceDriver, AudienceRideRoom}},
		{NewRideDeclined("r1", "d1", domain.DeclineDetails{Reason: "too far"}), RideDeclined, []Audience{AudienceRideRoom}},
		{NewRideStatusUpdated("r1", "d1", domain.RideStatusCompleted), RideStatusUpdated, []Audience{AudienceRideRoom, AudienceCustomer, AudienceDriver}},
		{NewPaymentAuthorized("r1", "p1", 12.5), PaymentAuthorized, []Audience{AudienceCustomer, AudienceDriver}},
		{NewRideMessage(domain.RideMessage{RideID: "r1", Sender: "c1", Message: "hi"}), RideMessage, []Audience{AudienceRideRoom, AudienceCustomer, AudienceDriver, AudienceAdmin}},
	}

	for _, tc := range cases {
		if tc.event.Name != tc.name {
			t.Errorf("expected name %s, got %s", tc.name, tc.event.Name)
		}
		if tc.event.ID == "" {
			t.Errorf("%s: expected event id to be set", tc.name)
		}
		if len(tc.event.Audience) != len(tc.want) {
			t.Errorf("%s: expected audience %v, got %v", tc.name, tc.want, tc.event.Audience)
			continue
		}
		for i := range tc.want {
			if tc.event.Audience[i] != tc.want[i] {
				t.Errorf("%s: expected audience %v, got %v", tc.name, tc.want, tc.event.Audience)
				break
			}
		}
	}
}

func TestRideMessageWireFormat(t *testing.T) {
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	event := NewRideMessage(domain.RideMessage{RideID: "r1", Sender: "c1", Message: "on my way", SentAt: sentAt})

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Name    string `json:"name"`
		Payload struct {
			RideID    string    `json:"ride_id"`
			Message   string    `json:"message"`
			Sender    string    `json:"sender"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.Name != "ride.message" {
		t.Errorf("expected name ride.message, got %s", decoded.Name)
	}
	if decoded.Payload.RideID != "r1" || decoded.Payload.Sender != "c1" || decoded.Payload.Message != "on my way" {
		t.Errorf("unexpected payload %+v", decoded.Payload)
	}
	if !decoded.Payload.Timestamp.Equal(sentAt) {
		t.Errorf("expected timestamp %v, got %v", sentAt, decoded.Payload.Timestamp)
	}
}
