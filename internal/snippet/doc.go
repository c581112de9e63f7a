// Package snippet publishes boot-config artifacts to the node snippet
// directory, addressed by VMID.
//
// The snippet file is the authoritative artifact channel: QEMU exposes
// it to the guest over fw_cfg, and the guest reads it exactly once at
// first boot. Artifacts live on their own lifecycle; destroying a VM
// never removes its artifact. The SSH-backed store writes bytes
// verbatim, an in-memory store backs unit tests, and a Mirror decorator
// copies every artifact to an S3-compatible bucket for audit.
package snippet
