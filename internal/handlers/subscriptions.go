package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/apierror"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/response"
)

// SubscriptionHandler implements the channel subscription endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
	Views         ViewStore
}

type subscriptionToggleResponse struct {
	Subscribed   bool                `json:"subscribed"`
	Subscription models.Subscription `json:"subscription"`
}

// Toggle handles POST /api/v1/subscriptions/c/{channelId}.
func (h SubscriptionHandler) Toggle(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	channelID, err := r.pathID("channelId")
	if err != nil {
		return err
	}
	if channelID == viewer.ID {
		return apierror.Validation("You cannot subscribe to your own channel")
	}

	sub, subscribed, err := h.Subscriptions.Toggle(r.Context(), viewer.ID, channelID)
	if err != nil {
		return notFound(err, "Channel does not exist")
	}
	metrics.TogglesTotal.WithLabelValues("subscription", metrics.ToggleState(subscribed)).Inc()

	message := "Unsubscribed successfully"
	if subscribed {
		message = "Subscribed successfully"
	}
	response.OK(r.Context(), w, subscriptionToggleResponse{Subscribed: subscribed, Subscription: sub}, message)
	return nil
}

// Subscribers handles GET /api/v1/subscriptions/c/{channelId}. Only the
// channel itself may list its subscribers.
func (h SubscriptionHandler) Subscribers(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	channelID, err := r.pathID("channelId")
	if err != nil {
		return err
	}
	if err := requireOwner(viewer, channelID, "You can only view subscribers of your own channel"); err != nil {
		return err
	}

	entries, err := h.Views.ChannelSubscribers(r.Context(), channelID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, entries, "Subscribers fetched successfully")
	return nil
}

// SubscribedChannels handles GET /api/v1/subscriptions/u/{subscriberId}.
func (h SubscriptionHandler) SubscribedChannels(w http.ResponseWriter, r Request) error {
	viewer, err := r.viewer()
	if err != nil {
		return err
	}
	subscriberID, err := r.pathID("subscriberId")
	if err != nil {
		return err
	}
	if err := requireOwner(viewer, subscriberID, "You can only view your own subscriptions"); err != nil {
		return err
	}

	entries, err := h.Views.SubscribedChannels(r.Context(), subscriberID)
	if err != nil {
		return err
	}

	response.OK(r.Context(), w, entries, "Subscribed channels fetched successfully")
	return nil
}
