package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/givehub/backend/internal/models"
)

func newTestClient(rooms ...string) *Client {
	return &Client{
		ID:    primitive.NewObjectID().Hex(),
		Rooms: rooms,
		send:  make(chan WSMessage, 8),
	}
}

func recvEvent(t *testing.T, c *Client) DonationEvent {
	t.Helper()
	select {
	case msg := <-c.send:
		assert.Equal(t, EventDonationCreated, msg.Event)
		var ev DonationEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		return ev
	default:
		t.Fatal("no message delivered")
		return DonationEvent{}
	}
}

func TestDonationCreatedReachesProgramAndGlobalRooms(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	programID := primitive.NewObjectID()

	inRoom := newTestClient(programID.Hex(), RoomAll)
	globalOnly := newTestClient(RoomAll)
	otherRoom := newTestClient(primitive.NewObjectID().Hex())
	hub.Register(inRoom)
	hub.Register(globalOnly)
	hub.Register(otherRoom)

	hub.DonationCreated(&models.Donation{
		ID:        primitive.NewObjectID(),
		ProgramID: programID,
		DonorName: "Ada",
		Amount:    125,
		Status:    models.DonationCompleted,
	})

	// The client in both rooms gets the event twice (program + global).
	ev := recvEvent(t, inRoom)
	assert.Equal(t, "Ada", ev.DonorName)
	assert.Equal(t, 125.0, ev.Amount)
	recvEvent(t, inRoom)

	ev = recvEvent(t, globalOnly)
	assert.Equal(t, programID.Hex(), ev.ProgramID)

	select {
	case <-otherRoom.send:
		t.Fatal("client in an unrelated room should not receive the event")
	default:
	}
}

func TestDonationCreatedMasksAnonymousDonor(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	client := newTestClient(RoomAll)
	hub.Register(client)

	hub.DonationCreated(&models.Donation{
		ID:          primitive.NewObjectID(),
		ProgramID:   primitive.NewObjectID(),
		DonorName:   "Ada Lovelace",
		DonorAvatar: "https://cdn.example.org/ada.png",
		Amount:      50,
		IsAnonymous: true,
	})

	ev := recvEvent(t, client)
	assert.Equal(t, "Anonymous", ev.DonorName)
	assert.Empty(t, ev.DonorAvatar)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	client := newTestClient(RoomAll)
	hub.Register(client)
	hub.Unregister(client)

	hub.DonationCreated(&models.Donation{
		ID:        primitive.NewObjectID(),
		ProgramID: primitive.NewObjectID(),
		Amount:    10,
	})

	select {
	case <-client.send:
		t.Fatal("unregistered client should not receive events")
	default:
	}
	assert.Zero(t, hub.SubscriberCount(RoomAll))
}

// Broadcasts must not iterate the live room map while clients disconnect;
// run with the race detector.
func TestBroadcastSafeDuringDisconnect(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	programID := primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		client := newTestClient(programID.Hex(), RoomAll)
		hub.Register(client)

		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.DonationCreated(&models.Donation{
				ID:        primitive.NewObjectID(),
				ProgramID: programID,
				Amount:    5,
			})
		}()
		go func(c *Client) {
			defer wg.Done()
			hub.Unregister(c)
		}(client)
	}
	wg.Wait()

	assert.Zero(t, hub.SubscriberCount(programID.Hex()))
	assert.Zero(t, hub.SubscriberCount(RoomAll))
}
