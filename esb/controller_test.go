package esb

import (
	"testing"
	"time"

	"github.com/lnp-node/lnpnode/address"
	"github.com/lnp-node/lnpnode/request"
)

// recordingHandler records every request it's handed and optionally echoes
// a GetInfo with a canned ChannelInfo, to exercise both the inbound and
// outbound paths of a Controller in one test.
type recordingHandler struct {
	BaseHandler
	received chan request.Request
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{received: make(chan request.Request, 8)}
}

func (h *recordingHandler) Handle(senders Senders, bus Bus, source address.ServiceAddress, req request.Request) error {
	h.received <- req
	if req.Type() == request.TypeGetInfo {
		return senders.SendTo(bus, address.Supervisor, source, &request.ChannelInfo{})
	}
	return nil
}

func TestBootstrapSendsHello(t *testing.T) {
	routerHandler := newRecordingHandler()

	// Bind the router on its fixed test ports first so they are listening
	// before the dealer dials them.
	endpoints := map[Bus]string{Ctl: "127.0.0.1:17555", Msg: "127.0.0.1:17556"}

	router := NewRouter(address.Supervisor, endpoints, routerHandler)
	if err := router.Run(); err != nil {
		t.Fatalf("router.Run: %v", err)
	}
	defer router.Shutdown()

	dealerHandler := newRecordingHandler()
	dealer := NewDealer(address.Channel([32]byte{0xaa}), endpoints, address.Supervisor, dealerHandler)
	if err := dealer.Run(); err != nil {
		t.Fatalf("dealer.Run: %v", err)
	}
	defer dealer.Shutdown()

	if err := dealer.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	select {
	case req := <-routerHandler.received:
		if req.Type() != request.TypeHello {
			t.Fatalf("expected Hello, got %v", req.Type())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("router never received Hello")
	}
}

func TestSendToBridgeIsNotSupported(t *testing.T) {
	endpoints := map[Bus]string{Ctl: "127.0.0.1:17557"}
	c := NewRouter(address.Supervisor, endpoints, newRecordingHandler())
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer c.Shutdown()

	err := c.SendTo(Bridge, address.Supervisor, address.Supervisor, &request.GetInfo{})
	if err == nil {
		t.Fatalf("expected NotSupported error sending to Bridge")
	}
}

func TestRoundTripGetInfo(t *testing.T) {
	routerHandler := newRecordingHandler()
	endpoints := map[Bus]string{Ctl: "127.0.0.1:17558"}

	router := NewRouter(address.Supervisor, endpoints, routerHandler)
	if err := router.Run(); err != nil {
		t.Fatalf("router.Run: %v", err)
	}
	defer router.Shutdown()

	channelAddr := address.Channel([32]byte{0xbb})
	dealerHandler := newRecordingHandler()
	dealer := NewDealer(channelAddr, endpoints, address.Supervisor, dealerHandler)
	if err := dealer.Run(); err != nil {
		t.Fatalf("dealer.Run: %v", err)
	}
	defer dealer.Shutdown()

	if err := dealer.SendTo(Ctl, channelAddr, address.Supervisor, &request.GetInfo{}); err != nil {
		t.Fatalf("SendTo: %v", err)
	}

	select {
	case req := <-routerHandler.received:
		if req.Type() != request.TypeGetInfo {
			t.Fatalf("router expected GetInfo, got %v", req.Type())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("router never received GetInfo")
	}

	select {
	case req := <-dealerHandler.received:
		if req.Type() != request.TypeChannelInfo {
			t.Fatalf("dealer expected ChannelInfo echo, got %v", req.Type())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("dealer never received ChannelInfo echo")
	}
}
