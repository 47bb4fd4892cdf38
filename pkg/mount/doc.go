// SPDX-License-Identifier: BSD-3-Clause

// Package mount ensures the kernel pseudo-filesystems the appliance depends
// on are present. The USB gadget tree requires configfs at /sys/kernel/config;
// on systems where init did not mount it we do it ourselves.
package mount
