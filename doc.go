/*
Package torii is the root of a register-transfer level hardware description
and simulation framework.

Designs are described as data: expression trees over fixed-width
two's-complement values (package hdl), grouped into combinational and clocked
assignment domains and composed hierarchically through elaboration. The
elaborated design is flattened into a netlist (package netlist), compiled
ahead of time into per-signal evaluation procedures, and executed by an
event-driven simulation kernel (package sim) that drives clock generators and
cooperative testbench processes.

The flattened netlist is also the hand-off point for external backends that
emit hardware description or netlist text formats; none of those live here.
*/
package torii

// Version of the torii-hdl module.
const Version = "0.3.0"
