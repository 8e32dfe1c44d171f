package buffer

// MaxWriteSize is the largest payload this library ever accepts from the
// kernel in a single WRITE request, advertised to the kernel during INIT as
// max_write.
const MaxWriteSize = 1 << 20

// MaxReadSize is the largest complete packet (header plus argument) this
// library will read from the kernel channel in one call.
const MaxReadSize = MaxWriteSize + 4096
