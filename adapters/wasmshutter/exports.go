//go:build wasip1

package main

import "github.com/micro-manager/micro-manager-sub007/pkg/wasmguest"

//go:wasmexport Alloc
func exportAlloc(size uint32) uint32 { return wasmguest.Alloc(size) }

//go:wasmexport Free
func exportFree(ptr uint32) { wasmguest.Free(ptr) }

//go:wasmexport InitializeModuleData
func exportInitializeModuleData() {}

//go:wasmexport GetModuleVersion
func exportGetModuleVersion() int32 { return module.GetModuleVersion() }

//go:wasmexport GetDeviceInterfaceVersion
func exportGetDeviceInterfaceVersion() int32 { return module.GetDeviceInterfaceVersion() }

//go:wasmexport GetNumberOfDevices
func exportGetNumberOfDevices() int32 { return module.GetNumberOfDevices() }

//go:wasmexport GetDeviceName
func exportGetDeviceName(index, out, size uint32) int32 { return module.GetDeviceName(index, out, size) }

//go:wasmexport GetDeviceDescription
func exportGetDeviceDescription(namePtr, nameLen, out, size uint32) int32 { return module.GetDeviceDescription(namePtr, nameLen, out, size) }

//go:wasmexport GetDeviceType
func exportGetDeviceType(namePtr, nameLen, out uint32) int32 { return module.GetDeviceType(namePtr, nameLen, out) }

//go:wasmexport CreateDevice
func exportCreateDevice(namePtr, nameLen uint32) int32 { return module.CreateDevice(namePtr, nameLen) }

//go:wasmexport DeleteDevice
func exportDeleteDevice(id uint32) { module.DeleteDevice(id) }

//go:wasmexport Device_Initialize
func exportDeviceInitialize(id uint32) int32 { return module.Initialize(id) }

//go:wasmexport Device_Shutdown
func exportDeviceShutdown(id uint32) int32 { return module.Shutdown(id) }

//go:wasmexport Device_GetName
func exportDeviceGetName(id, out, size uint32) int32 { return module.GetName(id, out, size) }

//go:wasmexport Device_GetType
func exportDeviceGetType(id uint32) int32 { return module.GetType(id) }

//go:wasmexport Device_Busy
func exportDeviceBusy(id uint32) int32 { return module.Busy(id) }

//go:wasmexport Device_GetErrorText
func exportDeviceGetErrorText(id uint32, code int32, out, size uint32) int32 { return module.GetErrorText(id, code, out, size) }

//go:wasmexport Device_GetNumberOfProperties
func exportDeviceGetNumberOfProperties(id uint32) int32 { return module.GetNumberOfProperties(id) }

//go:wasmexport Device_GetPropertyName
func exportDeviceGetPropertyName(id uint32, index int32, out, size uint32) int32 { return module.GetPropertyName(id, index, out, size) }

//go:wasmexport Device_HasProperty
func exportDeviceHasProperty(id, namePtr, nameLen uint32) int32 { return module.HasProperty(id, namePtr, nameLen) }

//go:wasmexport Device_GetProperty
func exportDeviceGetProperty(id, namePtr, nameLen, out, size uint32) int32 { return module.GetProperty(id, namePtr, nameLen, out, size) }

//go:wasmexport Device_SetProperty
func exportDeviceSetProperty(id, namePtr, nameLen, valuePtr, valueLen uint32) int32 { return module.SetProperty(id, namePtr, nameLen, valuePtr, valueLen) }

//go:wasmexport Device_GetPropertyReadOnly
func exportDeviceGetPropertyReadOnly(id, namePtr, nameLen uint32) int32 { return module.GetPropertyReadOnly(id, namePtr, nameLen) }

//go:wasmexport Device_GetPropertyInitStatus
func exportDeviceGetPropertyInitStatus(id, namePtr, nameLen uint32) int32 { return module.GetPropertyInitStatus(id, namePtr, nameLen) }

//go:wasmexport Device_GetPropertyType
func exportDeviceGetPropertyType(id, namePtr, nameLen uint32) int32 { return module.GetPropertyType(id, namePtr, nameLen) }

//go:wasmexport Device_HasPropertyLimits
func exportDeviceHasPropertyLimits(id, namePtr, nameLen uint32) int32 { return module.HasPropertyLimits(id, namePtr, nameLen) }

//go:wasmexport Device_GetPropertyLowerLimit
func exportDeviceGetPropertyLowerLimit(id, namePtr, nameLen, out uint32) int32 { return module.GetPropertyLowerLimit(id, namePtr, nameLen, out) }

//go:wasmexport Device_GetPropertyUpperLimit
func exportDeviceGetPropertyUpperLimit(id, namePtr, nameLen, out uint32) int32 { return module.GetPropertyUpperLimit(id, namePtr, nameLen, out) }

//go:wasmexport Device_GetNumberOfPropertyValues
func exportDeviceGetNumberOfPropertyValues(id, namePtr, nameLen uint32) int32 { return module.GetNumberOfPropertyValues(id, namePtr, nameLen) }

//go:wasmexport Device_GetPropertyValueAt
func exportDeviceGetPropertyValueAt(id, namePtr, nameLen uint32, index int32, out, size uint32) int32 { return module.GetPropertyValueAt(id, namePtr, nameLen, index, out, size) }

//go:wasmexport Device_IsPropertySequenceable
func exportDeviceIsPropertySequenceable(id, namePtr, nameLen uint32) int32 { return module.IsPropertySequenceable(id, namePtr, nameLen) }

//go:wasmexport Device_GetPropertySequenceMaxLength
func exportDeviceGetPropertySequenceMaxLength(id, namePtr, nameLen uint32) int32 { return module.GetPropertySequenceMaxLength(id, namePtr, nameLen) }

//go:wasmexport Device_StartPropertySequence
func exportDeviceStartPropertySequence(id, namePtr, nameLen uint32) int32 { return module.StartPropertySequence(id, namePtr, nameLen) }

//go:wasmexport Device_StopPropertySequence
func exportDeviceStopPropertySequence(id, namePtr, nameLen uint32) int32 { return module.StopPropertySequence(id, namePtr, nameLen) }

//go:wasmexport Device_ClearPropertySequence
func exportDeviceClearPropertySequence(id, namePtr, nameLen uint32) int32 { return module.ClearPropertySequence(id, namePtr, nameLen) }

//go:wasmexport Device_AddToPropertySequence
func exportDeviceAddToPropertySequence(id, namePtr, nameLen, valuePtr, valueLen uint32) int32 { return module.AddToPropertySequence(id, namePtr, nameLen, valuePtr, valueLen) }

//go:wasmexport Device_SendPropertySequence
func exportDeviceSendPropertySequence(id, namePtr, nameLen uint32) int32 { return module.SendPropertySequence(id, namePtr, nameLen) }

//go:wasmexport Device_SupportsDeviceDetection
func exportDeviceSupportsDeviceDetection(id uint32) int32 { return module.SupportsDeviceDetection(id) }

//go:wasmexport Device_DetectDevice
func exportDeviceDetectDevice(id uint32) int32 { return module.DetectDevice(id) }

//go:wasmexport Device_SetOpen
func exportDeviceSetOpen(id uint32, open int32) int32 { return module.SetOpen(id, open) }

//go:wasmexport Device_GetOpen
func exportDeviceGetOpen(id uint32) int32 { return module.GetOpen(id) }

//go:wasmexport Device_Fire
func exportDeviceFire(id uint32, deltaT float64) int32 { return module.Fire(id, deltaT) }
