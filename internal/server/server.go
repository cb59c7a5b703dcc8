package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/google/uuid"
	"github.com/micro-manager/micro-manager-sub007/internal/device"
	"github.com/micro-manager/micro-manager-sub007/internal/errorcodes"
	"github.com/micro-manager/micro-manager-sub007/internal/logging"
	"github.com/micro-manager/micro-manager-sub007/internal/registry"
	"github.com/micro-manager/micro-manager-sub007/pkg/mmdevice"
	"github.com/rs/zerolog/log"
)

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// Server exposes a device registry over a line-oriented TCP protocol.
// Each request is one command word followed by space separated arguments;
// each reply is "OK [result]" or "ERR <code> <message>".
type Server struct {
	address     string
	srv         *anetserver.Server
	reg         *registry.Registry
	mu          sync.RWMutex // held exclusively by reloads and structural commands
	activeConns int32
}

type handlerFunc func(s *Server, args []string) (string, error)

// mutatesFunc reports whether a command with args changes the set of loaded
// devices or their lifecycle. Such commands run one at a time.
type mutatesFunc func(args []string) bool

func always([]string) bool { return true }

func setsParent(args []string) bool { return len(args) == 2 }

var commands = map[string]struct {
	minArgs, maxArgs int
	fn               handlerFunc
	mutates          mutatesFunc
}{
	"LOAD":        {3, 3, cmdLoad, always},
	"UNLOAD":      {1, 1, cmdUnload, always},
	"RESET":       {0, 0, cmdReset, always},
	"INIT":        {0, 1, cmdInit, always},
	"GET":         {2, 2, cmdGet, nil},
	"SET":         {3, -1, cmdSet, nil},
	"BUSY":        {1, 1, cmdBusy, nil},
	"WAIT":        {1, 1, cmdWait, nil},
	"LIST":        {0, 1, cmdList, nil},
	"TYPE":        {1, 1, cmdType, nil},
	"PARENT":      {1, 2, cmdParent, setsParent},
	"PERIPHERALS": {1, 1, cmdPeripherals, nil},
	"INSTALLED":   {1, 1, cmdInstalled, nil},
	"DETECT":      {1, 1, cmdDetect, always},
}

// NewServer configures a control server for reg listening on address.
func NewServer(address string, reg *registry.Registry) (*Server, error) {
	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &Server{address: address, reg: reg}
	srv, err := anetserver.NewServer(address, anetserver.HandlerFunc(s.handle), cfg)
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("server started")
	return s.srv.Start()
}

// Stop gracefully shuts down the server. Loaded devices are left alone.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// Reload runs fn while no command is in flight.
func (s *Server) Reload(fn func(*registry.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return fn(s.reg)
}

func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	active := atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	start := time.Now()
	requestID := uuid.NewString()

	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		log.Error().Str("client_ip", client).Str("request_id", requestID).Msg("empty request")
		return []byte(errorReply(errorcodes.New(errorcodes.ErrGeneric, "empty request"))), nil
	}
	name := strings.ToUpper(fields[0])
	args := fields[1:]
	logging.LogRequest(requestID, client, name, args, int(active))

	result, err := s.dispatch(name, args)

	var resp string
	code := 0
	if err != nil {
		code = codeOf(err)
		resp = errorReply(err)
		log.Warn().
			Str("event", "command_failed").
			Str("request_id", requestID).
			Str("command", name).
			Err(err).
			Msg("command failed")
	} else {
		resp = "OK"
		if result != "" {
			resp += " " + result
		}
	}
	logging.LogResponse(requestID, client, name, err == nil, code, time.Since(start))

	return []byte(resp), nil
}

func (s *Server) dispatch(name string, args []string) (string, error) {
	cmd, ok := commands[name]
	if !ok {
		return "", errorcodes.New(errorcodes.ErrGeneric, "unknown command %s", name)
	}
	if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
		return "", errorcodes.New(errorcodes.ErrGeneric, "wrong number of arguments for %s", name)
	}

	if cmd.mutates != nil && cmd.mutates(args) {
		s.mu.Lock()
		defer s.mu.Unlock()
	} else {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}

	return cmd.fn(s, args)
}

func errorReply(err error) string {
	return "ERR " + strconv.Itoa(codeOf(err)) + " " + err.Error()
}

func codeOf(err error) int {
	if kind, ok := errorcodes.KindOf(err); ok {
		return kind.Code
	}

	return errorcodes.ErrGeneric.Code
}

func cmdLoad(s *Server, args []string) (string, error) {
	inst, err := s.reg.LoadDevice(args[0], args[1], args[2])
	if err != nil {
		return "", err
	}

	return inst.Type().String(), nil
}

func cmdUnload(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}

	return "", s.reg.UnloadDevice(inst)
}

func cmdReset(s *Server, _ []string) (string, error) {
	return "", s.reg.UnloadAllDevices()
}

func cmdInit(s *Server, args []string) (string, error) {
	if len(args) == 0 {
		return "", s.reg.InitializeAllDevices()
	}

	return "", s.reg.InitializeDevice(args[0])
}

func cmdGet(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}

	return inst.GetProperty(args[1])
}

func cmdSet(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}

	return "", inst.SetProperty(args[1], strings.Join(args[2:], " "))
}

func cmdBusy(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}
	busy, err := inst.Busy()
	if err != nil {
		return "", err
	}

	return strconv.FormatBool(busy), nil
}

func cmdWait(s *Server, args []string) (string, error) {
	return "", s.reg.WaitForDevice(context.Background(), args[0])
}

func cmdList(s *Server, args []string) (string, error) {
	typ := mmdevice.AnyType
	if len(args) == 1 {
		var ok bool
		if typ, ok = mmdevice.ParseDeviceType(args[0]); !ok {
			return "", errorcodes.New(errorcodes.ErrUnknownDeviceType, "%s", args[0])
		}
	}

	return strings.Join(s.reg.GetDeviceList(typ), " "), nil
}

func cmdType(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}

	return inst.Type().String(), nil
}

func cmdParent(s *Server, args []string) (string, error) {
	if len(args) == 2 {
		return "", s.reg.SetParentLabel(args[0], args[1])
	}

	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}
	hub, err := s.reg.GetParentDevice(inst)
	if err != nil || hub == nil {
		return "", err
	}

	return hub.Label(), nil
}

func cmdPeripherals(s *Server, args []string) (string, error) {
	inst, err := s.reg.GetDevice(args[0])
	if err != nil {
		return "", err
	}
	if _, ok := inst.(*device.Hub); !ok {
		return "", errorcodes.New(errorcodes.ErrNotAHub, "%s", args[0])
	}

	return strings.Join(s.reg.GetLoadedPeripherals(args[0]), " "), nil
}

func cmdInstalled(s *Server, args []string) (string, error) {
	names, err := s.reg.GetInstalledDevices(args[0])
	if err != nil {
		return "", err
	}

	return strings.Join(names, " "), nil
}

func cmdDetect(s *Server, args []string) (string, error) {
	status, err := s.reg.DetectDevice(args[0])
	if err != nil {
		return "", err
	}

	return status.String(), nil
}
