// Command wasmshutter is an adapter module built as a WebAssembly reactor:
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o mmgr_dal_wasmshutter.wasm ./adapters/wasmshutter
//
// Copy the result onto the adapter search path and load devices from
// module "wasmshutter".
package main

func main() {}
