package sovereign

// Sovereign accounts of the parachains registered on the origin chain.
var sovereignEntries = []TextEntry{
	{ParaID: 2051, From: "13YMK2dqinJywRdj2rcgPg79YBsP99f8KaDarsShYfgZsdXX", To: "13cKp88eoWVt52MsarZmWKSxnfYgrZiEPDs27pyCRPi8jLAg"},
	{ParaID: 3344, From: "13YMK2dtL6BvCZpAKQAFqeqMRK5XdMCRySvKG7fVjhh4SXKc", To: "13cKp88hQpNpLAYJsQ7LxJBAfnkqLmFY36ZkX5BzcRidJ1p5"},
	{ParaID: 2000, From: "13YMK2eYoAvStnzReuxBjMrAvPXmmdsURwZvc62PrdXimbNy", To: "13cKp89Msu7M2PiaCuuGr1BzAsD5V3vaVbDMs3YtjMZHdGwR"},
	{ParaID: 2004, From: "13YMK2eZbf9AyGhewRs6W6QTJvBSM5bxpnTD8WgeDofbg8Q1", To: "13cKp89NgPL56sRoVRpBcjkGZPrk4Vf4tS6ePUD96XhAXozG"},
	{ParaID: 2006, From: "13YMK2eZzuFY1WZGagpYtTgbWBWGdoUD2CtrPj1mQPjY8Ldc", To: "13cKp89P5dSS97HR8gme172QkfBaMDXK5rYHegYGH7m6yxhA"},
	{ParaID: 2012, From: "13YMK2ebCdad8E87WTgv3ZX25yUmVy4wcUDnBN18x9wMVD3H", To: "13cKp89QHMmXFprG4Te1ACrqLTA5DP83g7sDSKXdpsxvLm4u"},
	{ParaID: 1000, From: "13YMK2edbuhwMBxeUWm9c643A2wyYHwSVh1bCM7tShtg7Dtk", To: "13cKp89SgdtqUngo2WiEijPrQWdHFhzYZLf2TJePKRvExk7o"},
	{ParaID: 1001, From: "13YMK2edoXm7sJtTJ9EsoGh7FfcPgesZbQEQpxHT2zveL8Bd", To: "13cKp89StFx1zucbr9Bxuv2vW9HhQ4vff3sr5uowuixDBo8N"},
	{ParaID: 1002, From: "13YMK2ee19pJPRpG7mibzTLBMJGoq1ogh7TETZT1dHxcZKxZ", To: "13cKp89T5t1CX2YQfmfh76fzbmx7YRrnkm6fiWyWW1zBR7Dy"},
	{ParaID: 1004, From: "13YMK2eeQPvfRffsm2g4NpcKYZbe7jfvtXtsimn8ot2Z1W17", To: "13cKp89TV87ZZGQ2K2d9VTx8o3Gwq9j2xBYJyjJdgc47sQU7"},
	{ParaID: 1005, From: "13YMK2eec1yqwnbgaf9na1FPeCG4G6c3zF7hMNwhQB4XEsoc", To: "13cKp89TgkAk5PKq8f6sgebCtfwMyWfA3tm8cLUCGu666JWG"},
	{ParaID: 2030, From: "13YMK2eeopZtUNpeHnJ1Ws2HqMQG6Ts9PGCZYGyFbSYoZfcm", To: "13cKp89TtYknbyYnqnF6dWN75q5ZosvFSuqzoEVkUAaNR47A"},
	{ParaID: 2034, From: "13YMK2efcJncYrXsaJCvHbaaDt3vfubdn75r4hdVxcggU4n2", To: "13cKp89Uh2yWgTG28JA1QEvPUMjEPKejqkjHKf9zqLiFKjH6"},
	{ParaID: 2035, From: "13YMK2efovqo4yTgPvgeUnDeKWiLpGXkspJfhJo4YuiehJwG", To: "13cKp89Utf2hCaBpwvdjbRZTZzPeXgarwTx6xGKZRdkDZ2Z8"},
	{ParaID: 2043, From: "13YMK2ehQuHFDvt8xxWU2FLD6a1fy9zjfW5EkA7ZHFzQWEEt", To: "13cKp89WVdU9MXcHWxTZ8tg2M3gyga3qj9ig17e49z1yMzH4"},
}

// Accounts derived from the sovereign accounts of the parachains that use
// sub-accounts.
var derivedEntries = []TextEntry{
	{ParaID: 2004, Index: 0, From: "1EiVzbxegczA41HKn95KYBBLgRTgbjTuZGioTwuBBcqAhEK", To: "14qoZq1JTT3NQ5DhzzdVYz2MZhbKu3Xqt7eDBTiAghD45uiD"},
	{ParaID: 2004, Index: 3, From: "1VoasCKYkC3iGLNCisyArFuGUDrJFzDmq3y7Ybx73Wo3Af1", To: "13ASZ4b95qgD7CxH1ct82qckwdLYzvy1izPKjg9nRzw2YeKV"},
	{ParaID: 2034, Index: 2, From: "1Y3LNosw8L87u82a5Zo3YTJiAZFzLx8vqeNzxDTzK7iQVZR", To: "14Mipk8QXkXd6cExyztzAurhX79UH9gwMD5qkJkdWSfjeEhi"},
	{ParaID: 2000, Index: 3, From: "1bLyvLVBpJ2GUofXSmRquP8boTjeNLsxhby8SRWLq7Ki965", To: "13bjh1qdAxnQ1nV7mmWEp45thHBf3tPP44fNq7pVoeA1TvD9"},
	{ParaID: 2004, Index: 2, From: "12fqiDVAjx1hjnpdRgnS4UjnUeMKfP9e8oY33WxHbHdY55u4", To: "1BQMKooT2FdiTkfEPPZuaGPAC1Nd8u2FyFkfg7Gx6zMXTKq"},
	{ParaID: 2000, Index: 2, From: "12nXowBAMNbEgspm3qmQPzzP8unUwMRC4jjRDNWcqL5gNb5R", To: "15zezxcnwZE3xCHMVCydnht3b27LaK5SUX7Fv28VXBQnq3eX"},
	{ParaID: 2000, Index: 1, From: "13eBP4LpWVmQuvAXpTbzeZJFd3Eu6wsDwrbZrRy8bvwy18UT", To: "147MJ1XRVE3cKU8i8Go25rrcCWp8UPaokfXSDFnWnW6tLbD"},
	{ParaID: 2030, Index: 2, From: "13hLwqcVHqjiJMbZhR9LtfdhoxmTdssi7Kp8EJaW2yfk3knK", To: "13i264UcaMtDkJaXE96aKkEFvULKCzfDAy3hkQC7g8Yjvwgq"},
	{ParaID: 2030, Index: 1, From: "14QkQ7wVVDRrhbC1UqHsFwKFUns1SRud94CXMWGHWB8Jhtro", To: "12Joi61Ep7yJgfuAtFeRR7za27LmGuTtkPWL66Cc2T79Pt6i"},
	{ParaID: 2034, Index: 0, From: "14WLaRJ88AmeLhtdFR5xJ9dV5GaGBHTxupLpoFBvscg7JHvZ", To: "139wRWuxvXPmXqsR22YGEAriFgAdirww4eqHyr9PqG1gFreU"},
	{ParaID: 2034, Index: 1, From: "14s8paqs6c4u33SCuSyTktjigBmgdKkuBTnwZnTcumsGTr7W", To: "16HxL5uTsJrc1SfKXQysYbfAv4djSxZrjUkRP9ta14r1VDGf"},
	{ParaID: 2030, Index: 0, From: "14vtfeKAVKh1Jzb3s7e43SqZ3zB5MLsdCxZPoKDxeoCFKLu5", To: "13PwrD5KB2eHd8ebBWiv8sCF38pj7FN9Nda6chQ9j3y6HXJE"},
	{ParaID: 2004, Index: 1, From: "151M7fCiYX1Zc1wvFkWYhJv43PXr79pXcoehVBa5cxgiKZFC", To: "143m3BZDKsSzZWvajvXi1UWqVGhc7t3yX6tLrPXe1BLrjB3n"},
	{ParaID: 2030, Index: 3, From: "15cFpQf88oHvmox5BoEsuFKUJEDmhv336LPtReJFJ18hsfbK", To: "12EXVfUgXj3Wqc8uQaHLhawTKFGn3WJvG66VdRVEnMB8JsW2"},
	{ParaID: 2000, Index: 0, From: "15sr8Dvq3AT3Z2Z1y8FnQ4VipekAHhmQnrkgzegUr1tNgbcn", To: "12pw22Qyy3o28BLshjce9yrSMs3fhSiLsAjqLPAzGktbXYV7"},
	{ParaID: 2034, Index: 3, From: "16SzxTykTL4e3reJycE16DpfKvHjtKBE8etRSk1S1Sw6bjyN", To: "126W7koLH3kCvqZQepnrCVXudJrkQ2mWbBKRNv7ejfKHvad7"},
}
