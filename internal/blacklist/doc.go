// Package blacklist implements the blacklist checker (C7): a DNSBL sweep
// over a fixed zone list for every ACTIVE/WARMING IP, recording and
// auto-recovering BlacklistEvent rows, and handing new listings to the
// lifecycle manager (C4) for blacklist response.
package blacklist
