package grpcapi

import (
	"context"
	"sort"

	"github.com/xilinx-labs/sn-ctl-core/internal/agent"
	"github.com/xilinx-labs/sn-ctl-core/internal/cms"
	"github.com/xilinx-labs/sn-ctl-core/internal/core"
	"github.com/xilinx-labs/sn-ctl-core/internal/grpcapi/sncfgpb"
	"github.com/xilinx-labs/sn-ctl-core/internal/sff8636"
)

// cmsGpioState maps the wire GPIO message onto the writable lines the
// CMS proxy accepts.
func cmsGpioState(g *sncfgpb.ModuleGpioProto) cms.GpioState {
	return cms.GpioState{Reset: g.Reset, ModSel: g.ModSel, LPMode: g.LPMode}
}

// moduleIDs resolves a module selector against one device, in
// ascending ID order.
func moduleIDs(d *agent.Device, moduleID int32) ([]int32, bool) {
	if moduleID != -1 {
		if _, ok := d.Modules[moduleID]; !ok {
			return nil, false
		}
		return []int32{moduleID}, true
	}
	ids := make([]int32, 0, len(d.Modules))
	for id := range d.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, true
}

// readModuleImage captures a module's lower page plus the requested
// upper page into one 256-byte image for the sff8636 decoders.
func readModuleImage(d *agent.Device, id int32, upperPage uint8) (*sff8636.Page, error) {
	m := d.Modules[id]
	lower, err := d.CMS.ReadModulePage(d.ID, id, m.Cage, 0, false, false, false, 0)
	if err != nil {
		return nil, err
	}
	upper, err := d.CMS.ReadModulePage(d.ID, id, m.Cage, upperPage, true, false, false, 0)
	if err != nil {
		return nil, err
	}
	var page sff8636.Page
	copy(page[:128], lower)
	copy(page[128:], upper)
	return &page, nil
}

// GetModuleInfo reads and decodes one optical module's lower + page
// 00h upper memory.
func (s *CfgServer) GetModuleInfo(ctx context.Context, req *sncfgpb.GetModuleInfoRequest) ([]*sncfgpb.GetModuleInfoResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetModuleInfoResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetModuleInfoResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.GetModuleInfoResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			page, err := readModuleImage(d, id, uint8(sff8636.UpperPage00))
			if err != nil {
				out = append(out, &sncfgpb.GetModuleInfoResponse{
					DevID: d.ID, ModuleID: id, ErrorCode: core.CodeOf(err, core.ErrorModulePageRead),
				})
				continue
			}
			mod := sff8636.Decode(page)
			out = append(out, &sncfgpb.GetModuleInfoResponse{
				DevID: d.ID, ModuleID: id, ErrorCode: errOK,
				VendorName:  mod.Ident.VendorName,
				VendorPN:    mod.Ident.VendorPN,
				VendorSN:    mod.Ident.VendorSN,
				VendorRev:   mod.Ident.VendorRev,
				DateCode:    mod.Ident.DateCode,
				PowerClass:  mod.Ident.PowerClass,
				BaudRateMBd: mod.Ident.BaudRateMBd,
			})
		}
	}
	return out, nil
}

// GetModuleStatus reads one module's lower page and reports its
// free-side/channel monitors and latched fault flags.
func (s *CfgServer) GetModuleStatus(ctx context.Context, req *sncfgpb.GetModuleStatusRequest) ([]*sncfgpb.GetModuleStatusResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetModuleStatusResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetModuleStatusResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.GetModuleStatusResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			m := d.Modules[id]
			lower, err := d.CMS.ReadModulePage(d.ID, id, m.Cage, 0, false, false, false, 0)
			if err != nil {
				out = append(out, &sncfgpb.GetModuleStatusResponse{
					DevID: d.ID, ModuleID: id, ErrorCode: core.CodeOf(err, core.ErrorModulePageRead),
				})
				continue
			}
			var page sff8636.Page
			copy(page[:128], lower)
			mod := sff8636.Decode(&page)
			out = append(out, &sncfgpb.GetModuleStatusResponse{
				DevID: d.ID, ModuleID: id, ErrorCode: errOK,
				Monitors: &sncfgpb.ModuleMonitorsProto{
					TempCelsius:       mod.FreeSide.TempCelsius,
					VccVolts:          mod.FreeSide.VccVolts,
					RxPowerMilliwatts: mod.Channels.RxPowerMilliwatts,
					TxBiasMilliamps:   mod.Channels.TxBiasMilliamps,
					TxPowerMilliwatts: mod.Channels.TxPowerMilliwatts,
				},
				RxLOS:   mod.Interrupts.LOSPerChannel,
				TxFault: mod.Interrupts.FaultPerChannel,
			})
		}
	}
	return out, nil
}

// GetModuleGpio proxies the low-speed IO read for one or more modules.
func (s *CfgServer) GetModuleGpio(ctx context.Context, req *sncfgpb.GetModuleGpioRequest) ([]*sncfgpb.GetModuleGpioResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetModuleGpioResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetModuleGpioResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.GetModuleGpioResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			m := d.Modules[id]
			state, err := d.CMS.ReadModuleGPIO(d.ID, id, m.Type, m.Cage)
			if err != nil {
				out = append(out, &sncfgpb.GetModuleGpioResponse{
					DevID: d.ID, ModuleID: id, ErrorCode: core.CodeOf(err, core.ErrorModuleGpioRead),
				})
				continue
			}
			out = append(out, &sncfgpb.GetModuleGpioResponse{
				DevID: d.ID, ModuleID: id, ErrorCode: errOK,
				Gpio: &sncfgpb.ModuleGpioProto{
					Reset: state.Reset, ModSel: state.ModSel, ModPrs: state.ModPrs,
					Int: state.Int, LPMode: state.LPMode,
				},
			})
		}
	}
	return out, nil
}

// SetModuleGpio proxies the low-speed IO write; SFP modules reject it.
func (s *CfgServer) SetModuleGpio(ctx context.Context, req *sncfgpb.SetModuleGpioRequest) ([]*sncfgpb.SetModuleGpioResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetModuleGpioResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetModuleGpioResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.SetModuleGpioResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			resp := &sncfgpb.SetModuleGpioResponse{DevID: d.ID, ModuleID: id}
			if req.Gpio == nil {
				resp.ErrorCode = core.ErrorMissingModuleConfig
				out = append(out, resp)
				continue
			}
			m := d.Modules[id]
			err := d.CMS.WriteModuleGPIO(d.ID, id, m.Type, m.Cage, cmsGpioState(req.Gpio))
			resp.ErrorCode = core.CodeOf(err, core.ErrorModuleGpioWrite)
			out = append(out, resp)
		}
	}
	return out, nil
}

// GetModuleMem reads a span of module memory one byte at a time
// through the CMS byte-read proxy.
func (s *CfgServer) GetModuleMem(ctx context.Context, req *sncfgpb.GetModuleMemRequest) ([]*sncfgpb.GetModuleMemResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.GetModuleMemResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.GetModuleMemResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.GetModuleMemResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			out = append(out, s.readOneModuleMem(d, id, req.Offset, req.Count))
		}
	}
	return out, nil
}

func (s *CfgServer) readOneModuleMem(d *agent.Device, id, offset, count int32) *sncfgpb.GetModuleMemResponse {
	resp := &sncfgpb.GetModuleMemResponse{DevID: d.ID, ModuleID: id}
	if code := validateMemSpan(offset, count); code != errOK {
		resp.ErrorCode = code
		return resp
	}
	m := d.Modules[id]
	data := make([]byte, count)
	for i := range data {
		b, err := d.CMS.ReadModuleByte(d.ID, id, m.Cage, &m.Sel, int(offset)+i)
		if err != nil {
			resp.ErrorCode = core.CodeOf(err, core.ErrorModuleMemRead)
			return resp
		}
		data[i] = b
	}
	resp.ErrorCode = errOK
	resp.Data = data
	return resp
}

// SetModuleMem writes a span of module memory one byte at a time.
func (s *CfgServer) SetModuleMem(ctx context.Context, req *sncfgpb.SetModuleMemRequest) ([]*sncfgpb.SetModuleMemResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetModuleMemResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetModuleMemResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.SetModuleMemResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			resp := &sncfgpb.SetModuleMemResponse{DevID: d.ID, ModuleID: id}
			if code := validateMemSpan(req.Offset, int32(len(req.Data))); code != errOK {
				resp.ErrorCode = code
				out = append(out, resp)
				continue
			}
			m := d.Modules[id]
			resp.ErrorCode = errOK
			for i, b := range req.Data {
				if err := d.CMS.WriteModuleByte(d.ID, id, m.Cage, &m.Sel, int(req.Offset)+i, b); err != nil {
					resp.ErrorCode = core.CodeOf(err, core.ErrorModuleMemWrite)
					break
				}
			}
			out = append(out, resp)
		}
	}
	return out, nil
}

// validateMemSpan bounds a byte-access span to the 256-byte module
// address space.
func validateMemSpan(offset, count int32) core.ErrorCode {
	if offset < 0 || offset > 0xFF {
		return core.ErrorModuleMemInvalidOffset
	}
	if count < 1 || offset+count > 0x100 {
		return core.ErrorModuleMemInvalidCount
	}
	return errOK
}

// upperPageValid is the set of upper pages SFF-8636 defines.
func upperPageValid(page int32) bool {
	switch page {
	case 0x00, 0x01, 0x02, 0x03, 0x20, 0x21:
		return true
	default:
		return false
	}
}

// SetModulePage selects the upper page for subsequent upper-half
// memory accesses, writing the module's page-select byte (127) and
// recording the selection.
func (s *CfgServer) SetModulePage(ctx context.Context, req *sncfgpb.SetModulePageRequest) ([]*sncfgpb.SetModulePageResponse, error) {
	devs, ok := s.devs(req.DevID)
	if !ok {
		return []*sncfgpb.SetModulePageResponse{{DevID: req.DevID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidDeviceId}}, nil
	}
	var out []*sncfgpb.SetModulePageResponse
	for _, d := range devs {
		ids, ok := moduleIDs(d, req.ModuleID)
		if !ok {
			out = append(out, &sncfgpb.SetModulePageResponse{DevID: d.ID, ModuleID: req.ModuleID, ErrorCode: core.ErrorInvalidModuleId})
			continue
		}
		for _, id := range ids {
			resp := &sncfgpb.SetModulePageResponse{DevID: d.ID, ModuleID: id}
			if !upperPageValid(req.Page) {
				resp.ErrorCode = core.ErrorModuleMemInvalidPage
				out = append(out, resp)
				continue
			}
			m := d.Modules[id]
			if err := d.CMS.WriteModuleByte(d.ID, id, m.Cage, &m.Sel, 127, byte(req.Page)); err != nil {
				resp.ErrorCode = core.CodeOf(err, core.ErrorModuleMemWrite)
				out = append(out, resp)
				continue
			}
			m.Sel.SelectUpperPage(uint8(req.Page))
			resp.ErrorCode = errOK
			out = append(out, resp)
		}
	}
	return out, nil
}
