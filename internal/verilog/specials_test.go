package verilog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"fhdl/internal/ir"
	"fhdl/internal/namer"
)

func TestDefaultRegistryKinds(t *testing.T) {
	require.Equal(t, []string{"instance", "memory", "multireg", "tristate"}, DefaultRegistry().Kinds())
}

func TestRegistryEmitDeclined(t *testing.T) {
	reg := NewRegistry()
	reg.Register("tristate", Handler{Emit: func(ir.Special, *namer.Namespace, DataFileWriter) (string, bool, error) {
		return "", false, nil
	}})
	tri := &ir.Tristate{ID: 1, Target: ir.Int(0), O: ir.Int(0), OE: ir.Int(0)}
	_, err := reg.Emit(tri, namespaceFor(), newDataFiles("top"))
	require.True(t, errors.Is(err, ir.ErrUnhandledSpecial), "got %v", err)
}

func TestDataFilesDeduplicate(t *testing.T) {
	files := newDataFiles("top")
	require.Equal(t, "top_mem.init", files.Add("mem.init", []byte("00\n")))
	require.Equal(t, "top_mem_1.init", files.Add("mem.init", []byte("01\n")))
	require.Equal(t, "top_blob", files.Add("blob", nil))
	require.Len(t, files.files, 3)
	require.Equal(t, "01\n", string(files.files[1].Content))
}

func TestEmitMemory(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	mem := b.Memory("mem", 8, 4, []uint64{1, 2, 0xab, 0},
		ir.MemoryPortConfig{Write: true},
		ir.MemoryPortConfig{AsyncRead: true},
	)
	b.IO(mem.Ports[0].DatR, mem.Ports[1].DatR)

	art := convert(t, b.Fragment(), Options{})
	mustContain(t, art.Source,
		"// Memory mem: 4-words x 8-bit\n",
		"reg [7:0] mem[0:3];\n",
		"initial begin\n\t$readmemh(\"top_mem.init\", mem);\nend\n",
		"reg [7:0] memdat;\n",
		"always @(posedge sys_clk) begin\n\tif (mem_we0)\n\t\tmem[mem_adr0] <= mem_dat_w0;\n\tmemdat <= mem[mem_adr0];\nend\n",
		"assign mem_dat_r0 = memdat;\n",
		"assign mem_dat_r1 = mem[mem_adr1];\n",
		"\toutput wire [7:0] mem_dat_r0,\n",
	)
	require.Len(t, art.DataFiles, 1)
	require.Equal(t, "top_mem.init", art.DataFiles[0].Name)
	require.Equal(t, "01\n02\nab\n00\n", string(art.DataFiles[0].Content))
}

func TestEmitMemoryGranularWrite(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	b.Memory("ram", 16, 8, nil, ir.MemoryPortConfig{Write: true, WeGranularity: 8, Mode: ir.WriteFirst, ReadEnable: true})

	src := convert(t, b.Fragment(), Options{}).Source
	mustContain(t, src,
		"\tif (ram_we0[0])\n\t\tram[ram_adr0][7:0] <= ram_dat_w0[7:0];\n",
		"\tif (ram_we0[1])\n\t\tram[ram_adr0][15:8] <= ram_dat_w0[15:8];\n",
		"reg [2:0] memadr;\n",
		"\tif (ram_re0)\n\t\tmemadr <= ram_adr0;\n",
		"assign ram_dat_r0 = ram[memadr];\n",
	)
	if strings.Contains(src, "$readmemh") {
		t.Fatalf("memory without contents must not load a file:\n%s", src)
	}
}

func TestEmitMemoryNoChange(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	b.Memory("fifo", 4, 2, nil, ir.MemoryPortConfig{Write: true, Mode: ir.NoChange})

	src := convert(t, b.Fragment(), Options{}).Source
	mustContain(t, src, "\tif (!fifo_we0)\n\t\tmemdat <= fifo[fifo_adr0];\n")
}

func TestEmitInstance(t *testing.T) {
	b := ir.NewBuilder()
	o := b.Signal("o", 1)
	i := b.Signal("i", 1)
	inst := b.Instance("SB_IO", "pad", []ir.InstanceParam{
		{Name: "PIN_TYPE", Value: ir.Const(41, 6, false)},
		{Name: "NAME", Value: "x"},
		{Name: "FREQ", Value: 12.0},
		{Name: "RAW", Value: ir.Preformatted("4'b1010")},
	}, []ir.InstancePort{
		{Name: "D_OUT", Direction: ir.Input, Expr: ir.Ref(o)},
		{Name: "D_IN", Direction: ir.Output, Expr: ir.Ref(i)},
	})
	cands := append(namer.SignalCandidates(o, i), namer.Candidate{DUID: inst.DUID(), Hint: inst.Hint()})
	ns := namer.Build(cands, Keywords)

	got, handled, err := emitInstance(inst, ns, nil)
	require.NoError(t, err)
	require.True(t, handled)
	want := "SB_IO #(\n" +
		"\t.PIN_TYPE(6'd41),\n" +
		"\t.NAME(\"x\"),\n" +
		"\t.FREQ(12.0),\n" +
		"\t.RAW(4'b1010)\n" +
		") pad (\n" +
		"\t.D_OUT(o),\n" +
		"\t.D_IN(i)\n" +
		");\n\n"
	require.Equal(t, want, got)
}

func TestEmitInstanceWithoutParams(t *testing.T) {
	b := ir.NewBuilder()
	a := b.Signal("a", 1)
	inst := b.Instance("BUF", "u0", nil, []ir.InstancePort{{Name: "A", Expr: ir.Ref(a)}})
	ns := namer.Build(append(namer.SignalCandidates(a), namer.Candidate{DUID: inst.DUID(), Hint: "u0"}), Keywords)

	got, _, err := emitInstance(inst, ns, nil)
	require.NoError(t, err)
	require.Equal(t, "BUF u0(\n\t.A(a)\n);\n\n", got)
}

func TestEmitInstanceRejectsUnknownParam(t *testing.T) {
	inst := &ir.Instance{ID: 1, Of: "X", Params: []ir.InstanceParam{{Name: "P", Value: []int{1}}}}
	ns := namer.Build([]namer.Candidate{{DUID: 1, Hint: "X"}}, Keywords)
	_, _, err := emitInstance(inst, ns, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "instance parameter P")
}

func TestEmitTristate(t *testing.T) {
	b := ir.NewBuilder()
	pad := b.Signal("pad", 4)
	o := b.Signal("o", 4)
	oe := b.Signal("oe", 1)
	i := b.Signal("i", 4)
	b.Tristate(ir.Ref(pad), ir.Ref(o), ir.Ref(oe), ir.Ref(i))
	b.IO(pad, o, oe, i)

	art := convert(t, b.Fragment(), Options{})
	mustContain(t, art.Source,
		"\tinout  wire [3:0] pad,\n",
		"\toutput wire [3:0] i\n",
		"assign pad = oe ? o : 4'bz;\nassign i = pad;\n\n",
	)
	require.Equal(t, ir.InOut, art.Classes[pad.DUID].Direction)
}

func TestLowerMultiReg(t *testing.T) {
	b := ir.NewBuilder()
	b.ClockDomain("sys")
	in := b.Signal("i", 1)
	out := b.Signal("o", 1)
	b.MultiReg(ir.Ref(in), ir.Ref(out), "sys", 0)
	b.IO(in, out)

	src := convert(t, b.Fragment(), Options{}).Source
	mustContain(t, src,
		"(* no_retiming = \"true\" *) reg  multireg = 1'd0;\n",
		"(* no_retiming = \"true\" *) reg  multireg_1 = 1'd0;\n",
		"\toutput wire o\n",
		"assign o = multireg_1;\n",
		"always @(posedge sys_clk) begin\n\tmultireg <= i;\n\tmultireg_1 <= multireg;\nend\n",
	)
}

func TestLowerMultiRegRejectsNegativeStages(t *testing.T) {
	alloc := ir.NewAllocator(10)
	m := &ir.MultiReg{ID: 1, I: ir.Int(0), O: ir.Int(0), Domain: "sys", Stages: -1}
	_, _, err := lowerMultiReg(m, alloc)
	require.Error(t, err)
}

func TestPrintAttributes(t *testing.T) {
	attrs := []ir.Attribute{
		{Name: "z", Value: 2},
		{Key: "b"},
		{Key: "a"},
		{Name: "y", Value: "s"},
	}
	require.Equal(t, `(* a = "true", b = "true", y = "s", z = 2 *)`, printAttributes(attrs, nil))
	require.Equal(t, `(* y = "s", z = 2 *)`, printAttributes(attrs, AttrTable{}))
	require.Equal(t, "", printAttributes(nil, nil))
}
