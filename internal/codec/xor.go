// Package codec 实现资源字节的可逆混淆。混淆以单字节 XOR 完成，任意二进制
// 内容均可处理，两次 Transform 恢复原文。
package codec

// XOR 以固定单字节密钥对资源逐字节异或。零值（Key=0）等价于恒等变换。
type XOR struct {
	Key byte
}

// NewXOR 使用配置中的单字节密钥构造编解码器。
func NewXOR(key byte) XOR {
	return XOR{Key: key}
}

// Transform 返回异或后的新切片，不修改入参；nil 输入返回空切片。
func (x XOR) Transform(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ x.Key
	}
	return out
}

// TransformInPlace 直接改写 data，适用于调用方独占的大缓冲区。
func (x XOR) TransformInPlace(data []byte) {
	for i := range data {
		data[i] ^= x.Key
	}
}
