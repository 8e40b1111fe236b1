// Command sn-cfg-server runs the sn_cfg.v2.SmartnicConfig gRPC
// service. Default listen port 50100.
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
)

const (
	defaultPort = 50100
	statsPeriod = 1 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("sn-cfg-server exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse("SN_CFG_SERVER", os.Args[1:], "/etc/sn-cfg/server.json")
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
		dev.CMS.Enable()
		if err := dev.CMS.IsReady(dev.ID); err != nil {
			return fmt.Errorf("device %s CMS not ready: %w", busID, err)
		}
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
	grpcapi.RegisterCfgServer(grpcServer, grpcapi.NewCfgServer(agt, handler))

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Address, cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("sn-cfg-server listening", "addr", lis.Addr().String())

	go func() {
		agt.WaitForShutdownSignal()
		grpcServer.GracefulStop()
	}()

	return grpcServer.Serve(lis)
}

func serverTLSCredentials(certChainFile, keyFile string) (credentials.TransportCredentials, error) {
	cert, err := tls.LoadX509KeyPair(certChainFile, keyFile)
	if err != nil {
		return nil, err
	}
	return credentials.NewTLS(&tls.Config{Certificates: []tls.Certificate{cert}}), nil
}
