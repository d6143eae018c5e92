package bootstrap

import (
	"io"
	"strings"
	"time"

	"github.com/pin/tftp/v3"

	"github.com/liscain-net/liscain/pkg/util"
)

// RunTFTP serves bootstrap files over TFTP on addr. Blocks until the
// listener fails.
func (s *Server) RunTFTP(addr string) error {
	srv := tftp.NewServer(s.tftpRead, nil)
	srv.SetTimeout(5 * time.Second)
	util.Infof("tftp listening on %s", addr)
	return srv.ListenAndServe(addr)
}

// tftpRead adapts Serve to the TFTP read-request callback. The peer
// address comes from the transfer, not the filename.
func (s *Server) tftpRead(filename string, rf io.ReaderFrom) error {
	peerAddr := ""
	if ot, ok := rf.(tftp.OutgoingTransfer); ok {
		addr := ot.RemoteAddr()
		peerAddr = addr.String()
	}
	content, err := s.Serve(filename, peerAddr)
	if err != nil {
		util.Errorf("tftp: serving %s to %s: %v", filename, peerAddr, err)
		return err
	}
	if ot, ok := rf.(tftp.OutgoingTransfer); ok {
		ot.SetSize(int64(len(content)))
	}
	_, err = rf.ReadFrom(strings.NewReader(content))
	return err
}
