package identity

import "math/rand"

// secretAlphabet は生成シークレットに使用する文字集合。
const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// secretLength は生成シークレットの固定長。
const secretLength = 12

// newSecret は英数字の固定長シークレットを生成する。
// 各文字は一様に選ばれる。暗号論的な予測不能性は要求されておらず、
// 本人確認はバックエンドのOTP・トークン検証が担う。math/rand/v2は
// プロセスごとにランダムにシードされるため、呼び出し間で予測可能な
// 繰り返しは発生しない。
func newSecret() string {
	b := make([]byte, secretLength)
	for i := range b {
		b[i] = secretAlphabet[rand.Intn(len(secretAlphabet))]
	}
	return string(b)
}
