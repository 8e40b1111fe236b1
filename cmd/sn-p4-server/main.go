// Command sn-p4-server runs the sn_p4.v2.SmartnicP4 gRPC service.
// Default listen port 50051.
package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/config"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi"
	"github.com/xilinx-labs/sn-ctl-core/internal/logger"
	"github.com/xilinx-labs/sn-ctl-core/internal/p4/packer"
)

const (
	defaultPort = 50051
	statsPeriod = 1 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("sn-p4-server exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse("SN_P4_SERVER", os.Args[1:], "/etc/sn-p4/server.json")
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}

	handler := logger.NewHandler(os.Stderr, nil)
	log := slog.New(handler)

	agt := agent.New(log)
	for i, busID := range cfg.BusIDs {
		dev, err := agent.NewDevice(agent.DeviceConfig{ID: int32(i), BusID: busID, NumPorts: 2, NumHosts: 2}, log)
		if err != nil {
			return fmt.Errorf("attach device %s: %w", busID, err)
		}
		// Pipeline attach (driver init, table reset, stats zone
		// registration) happens here once a vendor driver binding is
		// linked in; the service surface below serves whatever set of
		// pipelines the device ends up with.
		dev.StartStatsPollers(statsPeriod, log)
		agt.AddDevice(dev)
	}

	auth := grpcapi.NewAuthMetadataProcessor(cfg.Auth.Tokens)
	creds, err := serverTLSCredentials(cfg.TLS.CertChainFile, cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("load TLS credentials: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ForceServerCodec(grpcapi.JSONCodec{}),
		grpc.UnaryInterceptor(auth.UnaryInterceptor),
		grpc.StreamInterceptor(auth.StreamInterceptor),
	)
	grpcapi.RegisterP4Server(grpcServer, grpcapi.NewP4Server(agt, handler, tableMeta(agt)))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("sn-p4-server listening", "addr", lis.Addr().String())

	go func() {
		agt.WaitForShutdownSignal()
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}

// tableMeta resolves the full packed-rule schema for one
// (device, pipeline, table) triple from the already-initialized
// pipeline inventory.
func tableMeta(agt *agent.Agent) func(devID, pipelineID int32, tableName string) (*packer.Table, bool) {
	return func(devID, pipelineID int32, tableName string) (*packer.Table, bool) {
		d, ok := agt.Device(devID)
		if !ok {
			return nil, false
		}
		p, ok := d.Pipelines[pipelineID]
		if !ok {
			return nil, false
		}
		return p.TableByName(tableName)
	}
}

func serverTLSCredentials(certChainFile, keyFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certChainFile, keyFile)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(&tls.Config{Certificates: []tls.Certificate{cert}}), nil
}
