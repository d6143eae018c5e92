// Package rpcserver exposes the operator command interface: one JSON
// object per line over a plain TCP connection, one reply line per
// request.
package rpcserver

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"

	"github.com/liscain-net/liscain/pkg/adopter"
	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/task"
	"github.com/liscain-net/liscain/pkg/util"
)

// Request is one operator command. Fields beyond cmd are command
// specific; absent fields decode to their zero value.
type Request struct {
	Cmd                  string `json:"cmd"`
	ID                   *int64 `json:"id,omitempty"`
	Identity             string `json:"identity,omitempty"`
	Config               string `json:"config,omitempty"`
	UpstreamSwitchMAC    string `json:"upstream_switch_mac,omitempty"`
	UpstreamPortInfo     string `json:"upstream_port_info,omitempty"`
	DownstreamSwitchName string `json:"downstream_switch_name,omitempty"`
}

// ErrorReply is the failure reply shape.
type ErrorReply struct {
	Error string `json:"error"`
}

// InfoReply is the generic success reply shape.
type InfoReply struct {
	Info string `json:"info"`
}

// ListEntry is a device row augmented with its pending task count.
type ListEntry struct {
	device.Device
	CQueue int `json:"cqueue"`
}

// StatusReply additionally names the pending tasks, head first.
type StatusReply struct {
	device.Device
	CQueue      int      `json:"cqueue"`
	CQueueItems []string `json:"cqueue_items"`
}

// Server dispatches operator commands against the store and commander.
type Server struct {
	cfg     *config.Config
	store   *device.Store
	drivers *driver.Registry
	cmd     *commander.Commander
	adopt   adopter.Adopter
}

// NewServer creates the command server. adopt may be nil when autoconf
// is disabled.
func NewServer(cfg *config.Config, store *device.Store, drivers *driver.Registry, cmd *commander.Commander, adopt adopter.Adopter) *Server {
	return &Server{cfg: cfg, store: store, drivers: drivers, cmd: cmd, adopt: adopt}
}

// Run accepts connections on addr until the listener fails.
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	util.Infof("command socket listening on %s", addr)
	return s.Serve(ln)
}

// Serve accepts connections on ln until it fails.
func (s *Server) Serve(ln net.Listener) error {
	defer ln.Close()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.serveConn(conn)
	}
}

// serveConn answers requests line by line until the peer hangs up. A
// line that is not valid JSON gets an error reply; the connection
// stays open.
func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		var req Request
		var reply any
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			reply = ErrorReply{"malformed request"}
		} else {
			reply = s.Handle(req)
		}
		if err := enc.Encode(reply); err != nil {
			util.Errorf("rpc: writing reply to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}

// Handle executes one command and returns its reply value.
func (s *Server) Handle(req Request) any {
	switch req.Cmd {
	case "list":
		return s.handleList()
	case "status":
		return s.handleStatus(req)
	case "neighbor-info":
		return s.handleNeighborInfo(req)
	case "delete":
		return s.handleDelete(req)
	case "adopt":
		return s.handleAdopt(req)
	case "reinit":
		return s.handleReinit(req)
	case "opt82-info":
		return s.handleOpt82Info(req)
	case "opt82-list":
		return s.handleOpt82List()
	case "opt82-delete":
		return s.handleOpt82Delete(req)
	}
	return ErrorReply{"unknown command"}
}

// loadDevice resolves the id argument shared by most commands.
func (s *Server) loadDevice(req Request) (*device.Device, *ErrorReply) {
	if req.ID == nil {
		return nil, &ErrorReply{"missing device id"}
	}
	dev, err := s.store.GetByID(*req.ID)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, &ErrorReply{"device not found"}
		}
		return nil, &ErrorReply{err.Error()}
	}
	return dev, nil
}

func (s *Server) handleList() any {
	devices, err := s.store.ListAll()
	if err != nil {
		return ErrorReply{err.Error()}
	}
	entries := make([]ListEntry, 0, len(devices))
	for i := range devices {
		dev := devices[i]
		entries = append(entries, ListEntry{
			Device: dev,
			CQueue: s.cmd.QueueLength(&dev),
		})
	}
	return entries
}

func (s *Server) handleStatus(req Request) any {
	dev, errReply := s.loadDevice(req)
	if errReply != nil {
		return *errReply
	}
	items := s.cmd.QueueList(dev)
	if items == nil {
		items = []string{}
	}
	return StatusReply{Device: *dev, CQueue: len(items), CQueueItems: items}
}

func (s *Server) handleNeighborInfo(req Request) any {
	dev, errReply := s.loadDevice(req)
	if errReply != nil {
		return *errReply
	}
	drv, err := s.drivers.For(dev)
	if err != nil {
		return ErrorReply{err.Error()}
	}
	return InfoReply{drv.NeighborInfo(dev, false)}
}

func (s *Server) handleDelete(req Request) any {
	dev, errReply := s.loadDevice(req)
	if errReply != nil {
		return *errReply
	}
	if err := s.store.Delete(dev.ID); err != nil {
		return ErrorReply{err.Error()}
	}
	return InfoReply{"device deleted"}
}

func (s *Server) handleAdopt(req Request) any {
	dev, errReply := s.loadDevice(req)
	if errReply != nil {
		return *errReply
	}
	if req.Identity == "" {
		return ErrorReply{"missing identity"}
	}
	if req.Config == "" {
		return ErrorReply{"missing config"}
	}
	drv, err := s.drivers.For(dev)
	if err != nil {
		return ErrorReply{err.Error()}
	}
	if err := s.cmd.Enqueue(dev, task.NewConfiguration(dev, s.store, drv, req.Identity, req.Config)); err != nil {
		return ErrorReply{err.Error()}
	}
	return InfoReply{"ok"}
}

func (s *Server) handleReinit(req Request) any {
	dev, errReply := s.loadDevice(req)
	if errReply != nil {
		return *errReply
	}
	drv, err := s.drivers.For(dev)
	if err != nil {
		return ErrorReply{err.Error()}
	}
	tk := task.NewInitialization(dev, s.store, drv)
	if s.cfg.AutoconfEnabled && s.adopt != nil {
		tk.Hook(device.StateReady, s.adopt.Autoadopt)
	}
	if err := s.cmd.Enqueue(dev, tk); err != nil {
		return ErrorReply{err.Error()}
	}
	return InfoReply{"ok"}
}

func (s *Server) handleOpt82Info(req Request) any {
	if req.UpstreamSwitchMAC == "" {
		return ErrorReply{"missing upstream switch mac"}
	}
	if req.UpstreamPortInfo == "" {
		return ErrorReply{"missing upstream port info"}
	}
	assoc, err := s.store.SetAssociation(req.UpstreamSwitchMAC, req.UpstreamPortInfo, req.DownstreamSwitchName)
	if err != nil {
		return ErrorReply{err.Error()}
	}
	return assoc
}

func (s *Server) handleOpt82List() any {
	assocs, err := s.store.ListAssociations()
	if err != nil {
		return ErrorReply{err.Error()}
	}
	return assocs
}

func (s *Server) handleOpt82Delete(req Request) any {
	if req.ID == nil {
		return ErrorReply{"missing opt82 item id"}
	}
	if err := s.store.DeleteAssociation(*req.ID); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return ErrorReply{"option82 item not found"}
		}
		return ErrorReply{err.Error()}
	}
	return InfoReply{"option82 info deleted"}
}
